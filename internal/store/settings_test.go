package store

import (
	"testing"

	"github.com/flasherpro/console/internal/model"
)

func testSettings() *model.AppSettings {
	return &model.AppSettings{
		AppVersion:         "4.8",
		UpdateChannel:      "stable",
		AutoUpdate:         true,
		Theme:              "dark",
		AccentColor:        "#00e6b8",
		AnimationsEnabled:  true,
		SessionTimeout:     30,
		DefaultNetwork:     "trc20",
		DemoMaxFlashAmount: 30,
		LiveMaxFlashAmount: 10000000,
		LogLevel:           "info",
		APIEndpoint:        "https://api.example.com/v1",
		DepositAmount:      500,
		TransactionFee:     "Transaction Fee",
		WalletAddress:      "TXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXX",
		SuccessTitle:       "Success",
		SuccessMessage:     "Sent",
		TransactionHash:    "0000",
	}
}

func TestSettingsCurrentEmpty(t *testing.T) {
	ss := NewSettingsStore(setupTestDB(t))

	cur, err := ss.Current()
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if cur != nil {
		t.Error("expected nil on empty table")
	}
}

func TestSettingsSaveInsertsFirstRow(t *testing.T) {
	ss := NewSettingsStore(setupTestDB(t))

	saved, err := ss.Save(testSettings())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.ID == 0 {
		t.Error("expected assigned id")
	}
	if saved.Theme != "dark" {
		t.Errorf("theme = %q, want %q", saved.Theme, "dark")
	}
	if !saved.AutoUpdate {
		t.Error("expected auto_update true")
	}
}

func TestSettingsSaveUpdatesInPlace(t *testing.T) {
	ss := NewSettingsStore(setupTestDB(t))

	first, err := ss.Save(testSettings())
	if err != nil {
		t.Fatalf("first save: %v", err)
	}

	changed := testSettings()
	changed.Theme = "light"
	changed.DebugMode = true
	second, err := ss.Save(changed)
	if err != nil {
		t.Fatalf("second save: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("second save created row %d, want update of row %d", second.ID, first.ID)
	}
	if second.Theme != "light" {
		t.Errorf("theme = %q, want %q", second.Theme, "light")
	}

	// Still exactly one row.
	var count int
	ss.db.QueryRow(`SELECT COUNT(*) FROM app_settings`).Scan(&count)
	if count != 1 {
		t.Errorf("rows = %d, want 1", count)
	}
}

func TestSettingsCurrentReturnsLatest(t *testing.T) {
	ss := NewSettingsStore(setupTestDB(t))

	ss.Save(testSettings())

	cur, err := ss.Current()
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if cur == nil {
		t.Fatal("expected settings, got nil")
	}
	if cur.DemoMaxFlashAmount != 30 {
		t.Errorf("demo_max_flash_amount = %v, want 30", cur.DemoMaxFlashAmount)
	}
}
