package bus

import (
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// Subject naming convention:
// quotes.{venue}.{symbol}          accepted book snapshots
// venues.health.{venue}            venue status transitions
// executions.{symbol}.{status}     terminal execution records
//
// Symbols are normalized for subject tokens: BTC/USDT -> BTC-USDT.

// Stream names for JetStream
const (
	StreamQuotes     = "ROUTER_QUOTES"
	StreamVenues     = "ROUTER_VENUES"
	StreamExecutions = "ROUTER_EXECUTIONS"
)

// NormalizeSymbol makes a trading symbol safe as a subject token.
func NormalizeSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, "/", "-")
}

// NormalizeSubjectToken makes a subject usable inside a durable consumer
// name, which permits none of the subject metacharacters.
func NormalizeSubjectToken(subject string) string {
	r := strings.NewReplacer(".", "-", "*", "all", ">", "all")
	return r.Replace(subject)
}

// QuoteSubject builds the subject for one venue's snapshot of a symbol.
func QuoteSubject(venue, symbol string) string {
	return fmt.Sprintf("quotes.%s.%s", venue, NormalizeSymbol(symbol))
}

// HealthSubject builds the subject for a venue health transition.
func HealthSubject(venue string) string {
	return fmt.Sprintf("venues.health.%s", venue)
}

// ExecutionSubject builds the subject for a terminal execution record.
func ExecutionSubject(symbol, status string) string {
	return fmt.Sprintf("executions.%s.%s", NormalizeSymbol(symbol), strings.ToLower(status))
}

// DefaultStreams returns the JetStream streams the router publishes to.
// Quotes are high-volume and short-lived; executions are the audit trail
// and kept much longer.
func DefaultStreams() []StreamConfig {
	return []StreamConfig{
		{
			Name:      StreamQuotes,
			Subjects:  []string{"quotes.>"},
			Retention: nats.LimitsPolicy,
			MaxAge:    10 * time.Minute,
			MaxMsgs:   1_000_000,
		},
		{
			Name:      StreamVenues,
			Subjects:  []string{"venues.>"},
			Retention: nats.LimitsPolicy,
			MaxAge:    24 * time.Hour,
			MaxMsgs:   100_000,
		},
		{
			Name:      StreamExecutions,
			Subjects:  []string{"executions.>"},
			Retention: nats.LimitsPolicy,
			MaxAge:    30 * 24 * time.Hour,
			MaxMsgs:   10_000_000,
		},
	}
}
