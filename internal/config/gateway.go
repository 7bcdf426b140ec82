package config

import "time"

// GatewaysConfig holds per-channel payment gateway settings.
type GatewaysConfig struct {
	// SettingsTTL bounds how long loaded gateway settings may be reused
	// before the loader re-reads them.
	SettingsTTL time.Duration `yaml:"settings_ttl"`

	UPI          UPIConfig          `yaml:"upi"`
	BankTransfer BankTransferConfig `yaml:"bank_transfer"`
	Online       OnlineConfig       `yaml:"online"`
	PhonePe      PhonePeConfig      `yaml:"phonepe"`
}

// UPIConfig holds the static collection details handed to users paying by UPI.
type UPIConfig struct {
	Enabled   bool   `yaml:"enabled"`
	VPA       string `yaml:"vpa"`
	PayeeName string `yaml:"payee_name"`
}

// BankTransferConfig holds the static account details for manual bank transfers.
type BankTransferConfig struct {
	Enabled       bool   `yaml:"enabled"`
	AccountName   string `yaml:"account_name"`
	AccountNumber string `yaml:"account_number"`
	IFSC          string `yaml:"ifsc"`
	BankName      string `yaml:"bank_name"`
}

// OnlineConfig holds the redirect stub for the generic online gateway.
type OnlineConfig struct {
	Enabled         bool   `yaml:"enabled"`
	RedirectBaseURL string `yaml:"redirect_base_url"`
}

// PhonePeConfig holds PhonePe API credentials and endpoints.
// SaltKey must never be logged.
type PhonePeConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MerchantID  string        `yaml:"merchant_id"`
	SaltKey     string        `yaml:"salt_key"`
	SaltIndex   string        `yaml:"salt_index"`
	BaseURL     string        `yaml:"base_url"`
	CallbackURL string        `yaml:"callback_url"`
	RedirectURL string        `yaml:"redirect_url"`
	Timeout     time.Duration `yaml:"timeout"`
}
