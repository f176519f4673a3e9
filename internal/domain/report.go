package domain

type RoundFinance struct {
	RoundID            string        `json:"roundId"`
	RoundNumber        int           `json:"roundNumber"`
	Status             LotteryStatus `json:"status"`
	EntryPrice         int64         `json:"entryPrice"`
	SuccessfulPayments int           `json:"successfulPayments"`
	Revenue            int64         `json:"revenue"`
	CodesIssued        int           `json:"codesIssued"`
	Winners            int           `json:"winners"`
	PrizePaid          int64         `json:"prizePaid"`
}

type FinanceReport struct {
	Rounds        []RoundFinance `json:"rounds"`
	TotalRevenue  int64          `json:"totalRevenue"`
	TotalPrizes   int64          `json:"totalPrizes"`
	AverageTicket string         `json:"averageTicket"`
}

type AdminOverview struct {
	Settings Settings         `json:"settings"`
	Rounds   []Round          `json:"rounds"`
	Selected *RoundProgress   `json:"selected,omitempty"`
	Codes    []LotteryCode    `json:"codes"`
	Winners  []Winner         `json:"winners"`
	Payments []Payment        `json:"payments"`
	Logs     []TransactionLog `json:"logs"`
}
