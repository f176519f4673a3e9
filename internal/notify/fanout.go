package notify

import "github.com/lotterydesk/lottery-api/internal/domain"

type Publisher interface {
	Publish(event domain.LotteryEvent)
}

// Fanout publishes every event to each of its publishers in order.
type Fanout []Publisher

func (f Fanout) Publish(event domain.LotteryEvent) {
	for _, p := range f {
		p.Publish(event)
	}
}
