// Package lotterycode builds the human-readable lottery code strings.
//
// A code looks like R07-261015-0042: the round number (at least two
// digits), the issue date as YYMMDD and the sequential number padded to the
// digit count of the round capacity. Round and number together are unique,
// so the date never has to disambiguate anything.
package lotterycode

import (
	"fmt"
	"strconv"
	"time"
)

const (
	minRoundDigits = 2
	dateLayout     = "060102"
)

func Format(codeNumber, capacity, roundNumber int, issuedAt time.Time) string {
	return fmt.Sprintf("R%0*d-%s-%0*d",
		minRoundDigits, roundNumber,
		issuedAt.Format(dateLayout),
		Digits(capacity), codeNumber,
	)
}

// Digits returns the number of decimal digits in n, treating n < 1 as 1.
func Digits(n int) int {
	if n < 1 {
		return 1
	}

	return len(strconv.Itoa(n))
}
