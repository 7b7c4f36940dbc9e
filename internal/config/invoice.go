package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// InvoiceConfig is the issuer profile printed on every invoice.
type InvoiceConfig struct {
	IssuerName     string `mapstructure:"issuerName"`
	Tagline        string `mapstructure:"tagline"`
	Address        string `mapstructure:"address"`
	Phone          string `mapstructure:"phone"`
	TaxID          string `mapstructure:"taxId"`
	CurrencySymbol string `mapstructure:"currencySymbol"`
	Locale         string `mapstructure:"locale"`
	Footer         string `mapstructure:"footer"`
	NumberTemplate string `mapstructure:"numberTemplate"`
}

func DefaultInvoiceConfig() InvoiceConfig {
	return InvoiceConfig{
		IssuerName:     "MediCore Hospital",
		Tagline:        "Excellence in Healthcare",
		Address:        "123 Medical Center, Healthcare District, City - 400001",
		Phone:          "+91 98765 43210",
		TaxID:          "27XXXXX1234X1Z5",
		CurrencySymbol: "₹",
		Locale:         "en-IN",
		Footer:         "Thank you for choosing MediCore Hospital. Get well soon!",
		NumberTemplate: "BILL-{YYYY}{MM}{DD}-{SEQ5}",
	}
}

type InvoiceConfigHolder struct {
	current atomic.Value // holds InvoiceConfig
}

// NewStaticInvoiceConfigHolder returns a holder that never reloads.
func NewStaticInvoiceConfigHolder(cfg InvoiceConfig) *InvoiceConfigHolder {
	holder := &InvoiceConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewInvoiceConfigHolder(log *zap.Logger) (*InvoiceConfigHolder, error) {
	log = log.Named("invoice.config")
	v := viper.New()

	v.SetConfigName("invoice")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/medicore")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MEDICORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultInvoiceConfig()
	v.SetDefault("invoice.issuerName", defaults.IssuerName)
	v.SetDefault("invoice.tagline", defaults.Tagline)
	v.SetDefault("invoice.address", defaults.Address)
	v.SetDefault("invoice.phone", defaults.Phone)
	v.SetDefault("invoice.taxId", defaults.TaxID)
	v.SetDefault("invoice.currencySymbol", defaults.CurrencySymbol)
	v.SetDefault("invoice.locale", defaults.Locale)
	v.SetDefault("invoice.footer", defaults.Footer)
	v.SetDefault("invoice.numberTemplate", defaults.NumberTemplate)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	cfg, err := decodeInvoiceConfig(v)
	if err != nil {
		return nil, err
	}
	if err := validateInvoiceConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticInvoiceConfigHolder(cfg)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeInvoiceConfig(v)
		if err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := validateInvoiceConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// decodeInvoiceConfig goes through AllSettings so defaults fill keys the
// file leaves out.
func decodeInvoiceConfig(v *viper.Viper) (InvoiceConfig, error) {
	var wrapper struct {
		Invoice InvoiceConfig `mapstructure:"invoice"`
	}
	if err := v.Unmarshal(&wrapper); err != nil {
		return InvoiceConfig{}, err
	}
	return wrapper.Invoice, nil
}

func (h *InvoiceConfigHolder) Get() InvoiceConfig {
	return h.current.Load().(InvoiceConfig)
}

func validateInvoiceConfig(cfg InvoiceConfig) error {
	if strings.TrimSpace(cfg.IssuerName) == "" {
		return errors.New("invoice.issuerName cannot be empty")
	}
	if strings.TrimSpace(cfg.CurrencySymbol) == "" {
		return errors.New("invoice.currencySymbol cannot be empty")
	}
	if !strings.Contains(cfg.NumberTemplate, "{SEQ") {
		return errors.New("invoice.numberTemplate must contain a {SEQ} token")
	}
	return nil
}
