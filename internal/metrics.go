package internal

import "expvar"

var (
	eventsReceived = expvar.NewMap("eventpipe_events_received_total")
	parseErrors    = expvar.NewMap("eventpipe_parse_errors_total")
	decodeErrors   = expvar.NewMap("eventpipe_decode_errors_total")
	ruleMatches    = expvar.NewMap("eventpipe_rule_matches_total")
	publishErrors  = expvar.NewMap("eventpipe_publish_errors_total")
	storeErrors    = expvar.NewMap("eventpipe_store_errors_total")
)

func IncReceived(source string) {
	eventsReceived.Add(source, 1)
}

func IncParseError(source string) {
	parseErrors.Add(source, 1)
}

func IncDecodeError(source string) {
	decodeErrors.Add(source, 1)
}

func IncRuleMatch(topic string) {
	ruleMatches.Add(topic, 1)
}

func IncPublishError(driver string) {
	publishErrors.Add(driver, 1)
}

func IncStoreError(table string) {
	storeErrors.Add(table, 1)
}
