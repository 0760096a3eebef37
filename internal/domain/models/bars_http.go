package models

// Requests for the bars HTTP endpoints. Defined in domain for consistency and reuse.

type LatestBarsRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required"`
	Count  int    `query:"count" json:"count" default:"100" validate:"gte=1,lte=5000"`
}

type LatestAllBarsRequest struct {
	Count int `query:"count" json:"count" default:"1" validate:"gte=1,lte=100"`
}

type HistoricalBarsRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required"`
	Start  string `query:"start" json:"start" validate:"required"`
	End    string `query:"end" json:"end" validate:"required"`
}

type ValidateRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Mode   string `query:"mode" json:"mode" default:"log" validate:"oneof=log validate"`
	Bars   []Bar  `json:"bars"`
}

type IngestHistoricalRequest struct {
	Symbols        []string `json:"symbols" validate:"required,min=1"`
	Start          string   `json:"start" validate:"required"`
	End            string   `json:"end" validate:"required"`
	Interval       string   `json:"interval" default:"minute" validate:"oneof=minute day"`
	SkipValidation bool     `json:"skip_validation"`
}

type ExportRequest struct {
	Symbols []string `json:"symbols" validate:"required,min=1"`
	Start   string   `json:"start" validate:"required"`
	End     string   `json:"end" validate:"required"`
	Format  string   `json:"format" default:"csv" validate:"oneof=csv json parquet"`
}

type SectorBarsRequest struct {
	Sector string `param:"sector" json:"sector" validate:"required"`
	Count  int    `query:"count" json:"count" default:"100" validate:"gte=1,lte=5000"`
}

type LiveUpdateRequest struct {
	Symbols []string `json:"symbols"`
}
