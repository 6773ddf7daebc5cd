package smsparser

import (
	"regexp"
	"strings"
	"time"

	"kharcha/internal/models"
)

// Bank names stamped on extractions.
const (
	bankSBI     = "State Bank of India"
	bankHDFC    = "HDFC Bank"
	bankICICI   = "ICICI Bank"
	bankAxis    = "Axis Bank"
	bankKotak   = "Kotak Mahindra Bank"
	bankFederal = "Federal Bank"
	bankUnknown = "unknown"
)

// upiPlaceholder is the merchant substituted by the generic fallbacks, which
// cannot extract a real merchant span.
const upiPlaceholder = "UPI Payment"

// genericAccountRe finds a 4-digit account tail anywhere near an account or
// card mention. Used only by the fallback patterns; it is a heuristic and can
// pick the wrong number when a message mentions several account-like tokens.
var genericAccountRe = regexp.MustCompile(`(?i)(?:a/c|acct|account|card)\s*(?:no\.?)?\s*[x*]*(\d{4})`)

// groups indexes the capture groups of a bank pattern's regex.
type groups struct {
	amount   int
	account  int // 0 when the template names no account
	merchant int // 0 when the template names no merchant
}

// bankExtract builds the extractor closure shared by the bank-specific
// patterns: parse the amount, truncate the account token, trim the merchant
// span, and stamp the bank name.
func bankExtract(bank string, dir models.Direction, g groups, placeholderMerchant string) func(string, []string, time.Time) (*ParsedTransaction, error) {
	return func(_ string, m []string, receivedAt time.Time) (*ParsedTransaction, error) {
		amount, err := parseAmount(m[g.amount])
		if err != nil {
			return nil, err
		}

		merchant := placeholderMerchant
		if g.merchant > 0 {
			if s := strings.TrimSpace(m[g.merchant]); s != "" {
				merchant = s
			}
		}

		var suffix string
		if g.account > 0 {
			suffix = lastFour(m[g.account])
		}

		return &ParsedTransaction{
			Amount:        amount,
			Direction:     dir,
			Merchant:      merchant,
			AccountSuffix: suffix,
			BankName:      bank,
			Date:          receivedAt,
			RawText:       strings.TrimSpace(m[0]),
		}, nil
	}
}

// fallbackExtract builds the extractor for the generic fallbacks: bank
// identity is lost (BankName empty), the merchant is a fixed placeholder,
// and the account suffix comes from a secondary scan of the whole body.
func fallbackExtract(dir models.Direction) func(string, []string, time.Time) (*ParsedTransaction, error) {
	return func(body string, m []string, receivedAt time.Time) (*ParsedTransaction, error) {
		amount, err := parseAmount(m[1])
		if err != nil {
			return nil, err
		}

		var suffix string
		if am := genericAccountRe.FindStringSubmatch(body); am != nil {
			// Already a 4-digit tail; no further truncation needed.
			suffix = am[1]
		}

		return &ParsedTransaction{
			Amount:        amount,
			Direction:     dir,
			Merchant:      upiPlaceholder,
			AccountSuffix: suffix,
			BankName:      "",
			Date:          receivedAt,
			RawText:       strings.TrimSpace(m[0]),
		}, nil
	}
}

// amt matches a comma-grouped amount with an optional decimal part.
// rs matches the optional currency marker in front of it.
const (
	amt = `([\d,]+(?:\.\d+)?)`
	rs  = `(?:Rs\.?\s*|INR\s*)`
)

// DefaultRegistry returns the built-in rule catalog in matching order:
// bank-specific templates first, the generic debit/credit fallbacks last.
// Appending new bank rules anywhere before the fallbacks is safe; reordering
// existing rules changes which rule wins and needs fixture coverage.
func DefaultRegistry() *Registry {
	return NewRegistry([]BankPattern{
		// SBI debit:
		// "A/C X1234 debited by 1,500.00 on date 05Jan trf to Amazon Refno 998877"
		{
			Bank:      bankSBI,
			Direction: models.DirectionExpense,
			re:        regexp.MustCompile(`(?is)A/C\s+(\S+)\s+debited\s+by\s+` + rs + `?` + amt + `\b.*?trf\s+to\s+(.+?)\s+Refno`),
			extract:   bankExtract(bankSBI, models.DirectionExpense, groups{amount: 2, account: 1, merchant: 3}, ""),
		},
		// SBI credit:
		// "A/C X1234 credited by Rs.25,000.00 on 01Jan24 transfer from ACME PAYROLL Ref No 112233"
		{
			Bank:      bankSBI,
			Direction: models.DirectionIncome,
			re:        regexp.MustCompile(`(?is)A/C\s+(\S+)\s+credited\s+by\s+` + rs + `?` + amt + `\b.*?transfer\s+from\s+(.+?)\s+Ref\s?no`),
			extract:   bankExtract(bankSBI, models.DirectionIncome, groups{amount: 2, account: 1, merchant: 3}, ""),
		},
		// HDFC card debit:
		// "Rs.775.00 spent on HDFC Bank Card x4521 at BLINKIT on 2024-02-11:10:31:24"
		{
			Bank:      bankHDFC,
			Direction: models.DirectionExpense,
			re:        regexp.MustCompile(`(?is)` + rs + amt + `\s+spent\s+on\s+HDFC\s+Bank\s+Card\s+(\S+)\s+at\s+(.+?)\s+on\b`),
			extract:   bankExtract(bankHDFC, models.DirectionExpense, groups{amount: 1, account: 2, merchant: 3}, ""),
		},
		// HDFC UPI debit:
		// "Sent Rs.249.00 From HDFC Bank A/C *7712 To Netflix On 04-03-24"
		{
			Bank:      bankHDFC,
			Direction: models.DirectionExpense,
			re:        regexp.MustCompile(`(?is)Sent\s+` + rs + amt + `\s+From\s+HDFC\s+Bank\s+A/C\s+(\S+)\s+To\s+(.+?)\s+On\b`),
			extract:   bankExtract(bankHDFC, models.DirectionExpense, groups{amount: 1, account: 2, merchant: 3}, ""),
		},
		// HDFC credit:
		// "Rs. 50,000.00 credited to HDFC Bank A/C XXXX7712 on 01-03-24 by a/c linked to VPA acme@okhdfcbank"
		{
			Bank:      bankHDFC,
			Direction: models.DirectionIncome,
			re:        regexp.MustCompile(`(?is)` + rs + amt + `\s+(?:credited|deposited)\s+to\s+HDFC\s+Bank\s+A/C\s+(\S+)`),
			extract:   bankExtract(bankHDFC, models.DirectionIncome, groups{amount: 1, account: 2}, "Account Credit"),
		},
		// ICICI card debit:
		// "INR 232.42 spent on ICICI Bank Card XX8004 on 04-Mar-24 at ONE97 COMMUNICA. Avl Lmt: INR 1,23,456.28."
		{
			Bank:      bankICICI,
			Direction: models.DirectionExpense,
			re:        regexp.MustCompile(`(?is)` + rs + amt + `\s+spent\s+on\s+ICICI\s+Bank\s+Card\s+(\S+)\s+on\s+\S+\s+at\s+(.+?)\.\s*Avl`),
			extract:   bankExtract(bankICICI, models.DirectionExpense, groups{amount: 1, account: 2, merchant: 3}, ""),
		},
		// ICICI account debit:
		// "ICICI Bank Acct XX237 debited for Rs 200.00 on 01-Jan-24; RELIANCE JIO credited. UPI:400100200300."
		{
			Bank:      bankICICI,
			Direction: models.DirectionExpense,
			re:        regexp.MustCompile(`(?is)ICICI\s+Bank\s+Acct\s+(\S+)\s+debited\s+for\s+` + rs + amt + `\s+on\s+\S+\s*;\s*(.+?)\s+credited`),
			extract:   bankExtract(bankICICI, models.DirectionExpense, groups{amount: 2, account: 1, merchant: 3}, ""),
		},
		// ICICI account credit:
		// "ICICI Bank Acct XX237 credited with Rs 5,000.00 on 02-Jan-24 from UPI:sharma@okaxis."
		{
			Bank:      bankICICI,
			Direction: models.DirectionIncome,
			re:        regexp.MustCompile(`(?is)ICICI\s+Bank\s+Acc(?:oun)?t\s+(\S+)\s+(?:is\s+)?credited\s+with\s+` + rs + amt),
			extract:   bankExtract(bankICICI, models.DirectionIncome, groups{amount: 2, account: 1}, "Account Credit"),
		},
		// Axis card debit:
		// "Spent Card no. XX4310 INR 1579 13-12-23 19:57:25 DECATHLON IND Avl Lmt INR 123456.05"
		{
			Bank:      bankAxis,
			Direction: models.DirectionExpense,
			re:        regexp.MustCompile(`(?is)Spent\s+Card\s+no\.\s+(\S+)\s+` + rs + amt + `\s+\S+\s+\S+\s+(.+?)\s+Avl\s+Lmt`),
			extract:   bankExtract(bankAxis, models.DirectionExpense, groups{amount: 2, account: 1, merchant: 3}, ""),
		},
		// Kotak UPI debit:
		// "Sent Rs.20.00 from Kotak Bank AC X9023 to zomato@paytm on 11-02-24."
		{
			Bank:      bankKotak,
			Direction: models.DirectionExpense,
			re:        regexp.MustCompile(`(?is)Sent\s+` + rs + amt + `\s+from\s+Kotak\s+Bank\s+AC\s+(\S+)\s+to\s+(.+?)\s+on\b`),
			extract:   bankExtract(bankKotak, models.DirectionExpense, groups{amount: 1, account: 2, merchant: 3}, ""),
		},
		// Federal UPI debit:
		// "Rs 706.82 debited from your A/c using UPI on 07-03-2024 19:57:24 to VPA godaddy.cca@hdfcbank - (UPI Ref No 300000882989)-Federal Bank"
		{
			Bank:      bankFederal,
			Direction: models.DirectionExpense,
			re:        regexp.MustCompile(`(?is)` + rs + amt + `\s+debited\s+from\s+your\s+A/c\s+using\s+UPI\s+on\s+\S+\s+\S+\s+(?:to|and)\s+VPA\s+(\S+)`),
			extract:   bankExtract(bankFederal, models.DirectionExpense, groups{amount: 1, merchant: 2}, ""),
		},
		// Federal credit:
		// "Amit, you've received INR 9,000.00 in your Account XXXXXXXX1234. It was sent by 0111 on January 17, 2024. -Federal Bank"
		{
			Bank:      bankFederal,
			Direction: models.DirectionIncome,
			re:        regexp.MustCompile(`(?is)you've\s+received\s+` + rs + amt + `\s+in\s+your\s+Account\s+([A-Za-z0-9]+)`),
			extract:   bankExtract(bankFederal, models.DirectionIncome, groups{amount: 1, account: 2}, "Transfer In"),
		},
		// Generic debit fallback. Loses bank identity and merchant detail on
		// purpose; must stay after every bank-specific rule. Unlike the bank
		// rules, the currency marker is mandatory: a bare number next to a
		// debit verb is not enough evidence of a transaction.
		{
			Bank:      bankUnknown,
			Direction: models.DirectionExpense,
			re:        regexp.MustCompile(`(?is)` + rs + amt + `\s+(?:is\s+|was\s+|has\s+been\s+)?(?:debited|paid|sent|spent)`),
			extract:   fallbackExtract(models.DirectionExpense),
		},
		// Generic credit fallback.
		{
			Bank:      bankUnknown,
			Direction: models.DirectionIncome,
			re:        regexp.MustCompile(`(?is)` + rs + amt + `\s+(?:is\s+|was\s+|has\s+been\s+)?(?:credited|received|deposited)`),
			extract:   fallbackExtract(models.DirectionIncome),
		},
	})
}
