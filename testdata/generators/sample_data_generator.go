// Command sample_data_generator produces paired claim-export and
// remittance-statement CSV files for manual testing.
//
// The generated data carries the quirks real uploads have: member numbers
// with spreadsheet ".0" tails, amounts with currency symbols, mixed date
// formats, a configurable share of unpaid claims and orphan payment lines.
//
// Usage:
//
//	go run sample_data_generator.go -count=200 -paid-ratio=0.8 \
//	  -claims-output=claims.csv -statement-output=statement.csv
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

type claimRow struct {
	member   string
	patient  string
	date     time.Time
	invoice  string
	billed   decimal.Decimal
	paid     decimal.Decimal
	willPay  bool
	paysFull bool
}

var firstNames = []string{"Alice", "Brian", "Carol", "David", "Esther", "Felix", "Grace", "Hassan", "Irene", "James"}
var lastNames = []string{"Mwangi", "Otieno", "Kamau", "Njeri", "Odhiambo", "Wanjiku", "Kiprop", "Achieng", "Mutua", "Chebet"}

func main() {
	var (
		count           = flag.Int("count", 100, "number of claims to generate")
		paidRatio       = flag.Float64("paid-ratio", 0.8, "share of claims that appear on the statement")
		fullRatio       = flag.Float64("full-ratio", 0.85, "share of paid claims settled in full")
		orphanCount     = flag.Int("orphans", 3, "statement lines with no corresponding claim")
		seed            = flag.Int64("seed", time.Now().UnixNano(), "random seed for reproducible output")
		claimsOutput    = flag.String("claims-output", "sample_claims.csv", "claim export output path")
		statementOutput = flag.String("statement-output", "sample_statement.csv", "statement output path")
	)
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))
	rows := generateClaims(rng, *count, *paidRatio, *fullRatio)

	if err := writeClaims(*claimsOutput, rows, rng); err != nil {
		log.Fatalf("Failed to write claims: %v", err)
	}
	if err := writeStatement(*statementOutput, rows, *orphanCount, rng); err != nil {
		log.Fatalf("Failed to write statement: %v", err)
	}

	paid := 0
	for _, row := range rows {
		if row.willPay {
			paid++
		}
	}
	fmt.Printf("Generated %d claims (%d on statement, %d orphan lines)\n", len(rows), paid, *orphanCount)
	fmt.Printf("  claims:    %s\n", *claimsOutput)
	fmt.Printf("  statement: %s\n", *statementOutput)
}

func generateClaims(rng *rand.Rand, count int, paidRatio, fullRatio float64) []claimRow {
	rows := make([]claimRow, 0, count)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < count; i++ {
		billed := decimal.NewFromInt(int64(rng.Intn(48000) + 2000)).Div(decimal.NewFromInt(10))
		row := claimRow{
			member:   fmt.Sprintf("%07d", rng.Intn(9000000)+1000000),
			patient:  firstNames[rng.Intn(len(firstNames))] + " " + lastNames[rng.Intn(len(lastNames))],
			date:     base.AddDate(0, 0, rng.Intn(28)),
			invoice:  fmt.Sprintf("CS%06d-%02d", rng.Intn(900000)+100000, rng.Intn(100)),
			billed:   billed,
			willPay:  rng.Float64() < paidRatio,
			paysFull: rng.Float64() < fullRatio,
		}
		if row.willPay {
			if row.paysFull {
				row.paid = row.billed
			} else {
				// Partial settlement between 10% and 90%
				pct := decimal.NewFromInt(int64(rng.Intn(81) + 10))
				row.paid = row.billed.Mul(pct).Div(decimal.NewFromInt(100)).Round(2)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func writeClaims(path string, rows []claimRow, rng *rand.Rand) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	if err := w.Write([]string{"member_number", "patient_name", "service_date", "invoice_number", "billed_amount", "scheme_name"}); err != nil {
		return err
	}

	for _, row := range rows {
		member := row.member
		if rng.Float64() < 0.3 {
			member += ".0" // spreadsheet export artifact
		}
		record := []string{
			member,
			row.patient,
			row.date.Format("2006-01-02"),
			row.invoice,
			row.billed.StringFixed(2),
			"CORPORATE SCHEME",
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func writeStatement(path string, rows []claimRow, orphanCount int, rng *rand.Rand) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	if err := w.Write([]string{"member_number", "patient_name", "service_date", "bill_number", "claim_amount", "paid_amount", "payment_no"}); err != nil {
		return err
	}

	paymentNo := fmt.Sprintf("PAY%06d", rng.Intn(900000)+100000)
	for _, row := range rows {
		if !row.willPay {
			continue
		}

		// Statements render dates and punctuation differently than exports
		date := row.date.Format("02/01/2006")
		invoice := row.invoice
		if rng.Float64() < 0.5 {
			invoice = stripDashes(invoice)
		}

		record := []string{
			row.member,
			row.patient,
			date,
			invoice,
			"$" + row.billed.StringFixed(2),
			"$" + row.paid.StringFixed(2),
			paymentNo,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	for i := 0; i < orphanCount; i++ {
		record := []string{
			fmt.Sprintf("%07d", rng.Intn(9000000)+1000000),
			"Unknown Member",
			time.Date(2025, 6, rng.Intn(28)+1, 0, 0, 0, 0, time.UTC).Format("02/01/2006"),
			fmt.Sprintf("CS%06d-%02d", rng.Intn(900000)+100000, rng.Intn(100)),
			"$1500.00",
			"$1500.00",
			paymentNo,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func stripDashes(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r != '-' {
			out = append(out, r)
		}
	}
	return string(out)
}
