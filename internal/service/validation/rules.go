package validation

// Rules configures the quality check battery. Construct with DefaultRules
// and override fields as needed; the zero value disables everything useful.
type Rules struct {
	PriceMin         float64 `yaml:"price_min"`
	PriceMax         float64 `yaml:"price_max"`
	VolumeMin        int64   `yaml:"volume_min"`
	OHLCLogic        bool    `yaml:"ohlc_logic"`
	TimeSequence     bool    `yaml:"time_sequence"`
	DuplicateCheck   bool    `yaml:"duplicate_check"`
	CheckHolidays    bool    `yaml:"check_holidays"`
	QualityThreshold float64 `yaml:"quality_threshold"`
	TradingStart     string  `yaml:"trading_start"`
	TradingEnd       string  `yaml:"trading_end"`
}

// DefaultRules returns the NSE minute-bar defaults.
func DefaultRules() Rules {
	return Rules{
		PriceMin:         0.1,
		PriceMax:         200000,
		VolumeMin:        0,
		OHLCLogic:        true,
		TimeSequence:     true,
		DuplicateCheck:   true,
		CheckHolidays:    true,
		QualityThreshold: 0.95,
		TradingStart:     "09:15:00",
		TradingEnd:       "15:30:00",
	}
}
