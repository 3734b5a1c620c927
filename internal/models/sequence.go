package models

// Sequence is a named counter row, incremented under FOR UPDATE.
type Sequence struct {
	Name  string `gorm:"primaryKey;size:50"`
	Value int64  `gorm:"not null;default:0"`
}

const SequenceStockRequest = "stock_request"
