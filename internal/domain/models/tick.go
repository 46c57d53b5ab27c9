package models

// Trade is one raw market tick from the live feed. Ticks are materialized
// into 1m bars by the storage layer.
type Trade struct {
	Symbol    string
	Timestamp int64 // unix seconds
	Price     float64
	Volume    float64
}
