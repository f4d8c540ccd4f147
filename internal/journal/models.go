package journal

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AppState stores small session preferences between runs
type AppState struct {
	StateKey   string `gorm:"primaryKey;size:64"`
	StateValue string `gorm:"type:text;not null"`
	UpdatedTS  int64  `gorm:"not null;index"`
}

func (AppState) TableName() string {
	return "app_state"
}

// State keys
const (
	StateLastCategory = "last_category"
	StateLastSearch   = "last_search"
)

// BetReceipt records a bet submitted from this client
type BetReceipt struct {
	ID            string `gorm:"primaryKey;size:36"`
	Wallet        string `gorm:"size:66;not null;index"`
	MarketID      int64  `gorm:"not null;index"`
	MarketAddress string `gorm:"size:66;not null"`
	MarketName    string `gorm:"size:255"`
	Outcome       uint8  `gorm:"not null"`
	OutcomeName   string `gorm:"size:255"`
	StakeMist     uint64 `gorm:"not null"`
	Digest        string `gorm:"size:64;index"`
	Status        string `gorm:"size:16;not null"`
	Error         string `gorm:"type:text"`
	CreatedTS     int64  `gorm:"not null;index"`
}

func (BetReceipt) TableName() string {
	return "bet_receipts"
}

func (b *BetReceipt) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedTS == 0 {
		b.CreatedTS = time.Now().Unix()
	}
	return nil
}

// Resolution records an oracle resolution requested from this client
type Resolution struct {
	ID            string `gorm:"primaryKey;size:36"`
	MarketID      int64  `gorm:"not null;index"`
	MarketAddress string `gorm:"size:66;not null"`
	Winner        int    `gorm:"not null"`
	WinnerName    string `gorm:"size:255"`
	Digest        string `gorm:"size:64;index"`
	Status        string `gorm:"type:text;not null"` // oracle reports the full effects status
	Settled       bool   `gorm:"not null;default:false"`
	CreatedTS     int64  `gorm:"not null;index"`
}

func (Resolution) TableName() string {
	return "resolutions"
}

func (r *Resolution) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedTS == 0 {
		r.CreatedTS = time.Now().Unix()
	}
	return nil
}
