// Package smsparser extracts structured transactions from raw bank SMS text.
//
// The parser is a pure, first-match-wins pipeline: an ordered registry of
// bank-specific regular expressions is tried top to bottom against a message
// body, and the first matching pattern's extractor builds a ParsedTransaction.
// Most SMS traffic is not transactional, so "no match" is the common outcome
// and is not an error.
package smsparser

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"kharcha/internal/models"
)

// ErrMalformedAmount is returned when a pattern matched a message but the
// captured amount text could not be parsed as a number. The message should be
// skipped; the rest of a batch is unaffected.
var ErrMalformedAmount = fmt.Errorf("smsparser: malformed amount")

// ParsedTransaction is the result of a successful extraction. It is immutable
// once built; the ingestion pipeline owns it until it is persisted as an
// Expense.
type ParsedTransaction struct {
	// Amount in paise, always positive. The flow is carried by Direction.
	Amount    int64
	Direction models.Direction

	// Merchant is free-form text, possibly a placeholder such as
	// "UPI Payment" when the message carries no usable merchant span.
	Merchant string

	// AccountSuffix is the last 4 characters of the account or card token,
	// or empty when the message names no account.
	AccountSuffix string

	// BankName is empty when the message matched only a generic fallback
	// pattern, signalling a lower-confidence extraction.
	BankName string

	// Date is the SMS receipt timestamp. Dates inside the message body are
	// not parsed.
	Date time.Time

	// RawText is the verbatim matched substring, retained for audit.
	RawText string
}

// Fingerprint derives the dedup key for this transaction. Two SMS messages
// with the same amount, direction, timestamp, and matched text are the same
// transaction.
func (p *ParsedTransaction) Fingerprint() string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%d|%s|%d|%s", p.Amount, p.Direction, p.Date.Unix(), p.RawText)))
	return hex.EncodeToString(h[:])
}

// BankPattern is one extraction rule: a compiled regular expression paired
// with the bank it recognizes, the transaction direction its template
// implies, and an extractor that turns a regex match into a
// ParsedTransaction. Direction is a property of the pattern, not inferred
// per message, because a bank's debit and credit templates are different
// regexes.
type BankPattern struct {
	// Bank is the name stamped on successful matches. The generic
	// fallbacks use "unknown" here and leave BankName empty on results.
	Bank      string
	Direction models.Direction

	re *regexp.Regexp

	// extract receives the full message body, the regex submatches, and
	// the receipt timestamp. It returns ErrMalformedAmount (wrapped) when
	// the captured amount does not parse.
	extract func(body string, m []string, receivedAt time.Time) (*ParsedTransaction, error)
}

// Registry is an ordered, append-only list of bank patterns. Order is the
// matching contract: bank-specific rules come first and the generic
// debit/credit fallbacks last, so a specific rule always beats the catch-all.
type Registry struct {
	patterns []BankPattern
}

// NewRegistry creates a registry with the given patterns in matching order.
func NewRegistry(patterns []BankPattern) *Registry {
	return &Registry{patterns: patterns}
}

// Patterns returns the rules in matching order.
func (r *Registry) Patterns() []BankPattern {
	return r.patterns
}

// Extractor applies a pattern registry to individual SMS messages.
type Extractor struct {
	registry *Registry
}

// NewExtractor creates an extractor backed by the given registry.
func NewExtractor(registry *Registry) *Extractor {
	return &Extractor{registry: registry}
}

// NewDefaultExtractor creates an extractor with the built-in bank patterns.
func NewDefaultExtractor() *Extractor {
	return NewExtractor(DefaultRegistry())
}

// Extract tries each registered pattern in order against the message body.
// It returns (nil, nil) when no pattern matches, a ParsedTransaction on the
// first match, or an error wrapping ErrMalformedAmount when a matched
// amount fails to parse.
func (e *Extractor) Extract(body string, receivedAt time.Time) (*ParsedTransaction, error) {
	for i := range e.registry.patterns {
		p := &e.registry.patterns[i]
		m := p.re.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		return p.extract(body, m, receivedAt)
	}
	return nil, nil
}

// parseAmount converts a captured amount string to paise. Thousands
// separators are stripped first; a missing decimal portion is tolerated.
func parseAmount(s string) (int64, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedAmount, s)
	}
	return int64(math.Round(v * 100)), nil
}

// lastFour reduces an account or card token to its trailing 4 characters.
// Tokens of 4 characters or fewer are returned unchanged.
func lastFour(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= 4 {
		return s
	}
	return s[len(s)-4:]
}
