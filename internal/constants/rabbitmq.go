package constants

const ParserExchange = "parser_exchange"

// Ключи маршрутизации
const (
	RoutingKeySnapshotSaved = "oikotie.snapshot.saved"
)
