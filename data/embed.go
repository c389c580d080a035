package data

import _ "embed"

// MockTradingDataStore is the default month store used when no data file
// is configured.
//
//go:embed mockTradingDataStore.json
var MockTradingDataStore []byte
