package constituents

import "sort"

// Info describes one index constituent.
type Info struct {
	Name   string
	Sector string
}

// Table is an immutable view of the index constituents. Construct once and
// pass into the components that need symbol/sector lookups; it is safe for
// concurrent use because it is never mutated after construction.
type Table struct {
	bySymbol map[string]Info
}

// Nifty50 returns the NIFTY 50 constituents table.
func Nifty50() *Table {
	return &Table{bySymbol: nifty50}
}

// Lookup returns the constituent info for symbol.
func (t *Table) Lookup(symbol string) (Info, bool) {
	info, ok := t.bySymbol[symbol]
	return info, ok
}

// Sector returns the sector tag for symbol, or "" when unknown.
func (t *Table) Sector(symbol string) string {
	return t.bySymbol[symbol].Sector
}

// Symbols returns all symbols in lexical order.
func (t *Table) Symbols() []string {
	out := make([]string, 0, len(t.bySymbol))
	for s := range t.bySymbol {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Sectors groups symbols by sector, each group in lexical order.
func (t *Table) Sectors() map[string][]string {
	out := make(map[string][]string)
	for s, info := range t.bySymbol {
		out[info.Sector] = append(out[info.Sector], s)
	}
	for _, group := range out {
		sort.Strings(group)
	}
	return out
}

// SectorSymbols returns the symbols of one sector; ok is false for an
// unknown sector.
func (t *Table) SectorSymbols(sector string) ([]string, bool) {
	group := t.Sectors()[sector]
	if len(group) == 0 {
		return nil, false
	}
	return group, true
}

// Len returns the constituent count.
func (t *Table) Len() int { return len(t.bySymbol) }

var nifty50 = map[string]Info{
	"ADANIENT":   {Name: "Adani Enterprises Ltd.", Sector: "Diversified"},
	"ADANIPORTS": {Name: "Adani Ports and Special Economic Zone Ltd.", Sector: "Infrastructure"},
	"APOLLOHOSP": {Name: "Apollo Hospitals Enterprise Ltd.", Sector: "Healthcare"},
	"ASIANPAINT": {Name: "Asian Paints Ltd.", Sector: "Consumer Goods"},
	"AXISBANK":   {Name: "Axis Bank Ltd.", Sector: "Banking"},
	"BAJAJ-AUTO": {Name: "Bajaj Auto Ltd.", Sector: "Automobile"},
	"BAJFINANCE": {Name: "Bajaj Finance Ltd.", Sector: "Financial Services"},
	"BAJAJFINSV": {Name: "Bajaj Finserv Ltd.", Sector: "Financial Services"},
	"BPCL":       {Name: "Bharat Petroleum Corporation Ltd.", Sector: "Oil & Gas"},
	"BHARTIARTL": {Name: "Bharti Airtel Ltd.", Sector: "Telecom"},
	"BRITANNIA":  {Name: "Britannia Industries Ltd.", Sector: "FMCG"},
	"CIPLA":      {Name: "Cipla Ltd.", Sector: "Pharma"},
	"COALINDIA":  {Name: "Coal India Ltd.", Sector: "Mining"},
	"DIVISLAB":   {Name: "Divi's Laboratories Ltd.", Sector: "Pharma"},
	"DRREDDY":    {Name: "Dr. Reddy's Laboratories Ltd.", Sector: "Pharma"},
	"EICHERMOT":  {Name: "Eicher Motors Ltd.", Sector: "Automobile"},
	"GRASIM":     {Name: "Grasim Industries Ltd.", Sector: "Cement"},
	"HCLTECH":    {Name: "HCL Technologies Ltd.", Sector: "IT"},
	"HDFCBANK":   {Name: "HDFC Bank Ltd.", Sector: "Banking"},
	"HDFCLIFE":   {Name: "HDFC Life Insurance Company Ltd.", Sector: "Insurance"},
	"HEROMOTOCO": {Name: "Hero MotoCorp Ltd.", Sector: "Automobile"},
	"HINDALCO":   {Name: "Hindalco Industries Ltd.", Sector: "Metals"},
	"HINDUNILVR": {Name: "Hindustan Unilever Ltd.", Sector: "FMCG"},
	"ICICIBANK":  {Name: "ICICI Bank Ltd.", Sector: "Banking"},
	"ITC":        {Name: "ITC Ltd.", Sector: "FMCG"},
	"INDUSINDBK": {Name: "IndusInd Bank Ltd.", Sector: "Banking"},
	"INFY":       {Name: "Infosys Ltd.", Sector: "IT"},
	"JSWSTEEL":   {Name: "JSW Steel Ltd.", Sector: "Metals"},
	"KOTAKBANK":  {Name: "Kotak Mahindra Bank Ltd.", Sector: "Banking"},
	"LT":         {Name: "Larsen & Toubro Ltd.", Sector: "Infrastructure"},
	"M&M":        {Name: "Mahindra & Mahindra Ltd.", Sector: "Automobile"},
	"MARUTI":     {Name: "Maruti Suzuki India Ltd.", Sector: "Automobile"},
	"NTPC":       {Name: "NTPC Ltd.", Sector: "Power"},
	"NESTLEIND":  {Name: "Nestle India Ltd.", Sector: "FMCG"},
	"ONGC":       {Name: "Oil and Natural Gas Corporation Ltd.", Sector: "Oil & Gas"},
	"POWERGRID":  {Name: "Power Grid Corporation of India Ltd.", Sector: "Power"},
	"RELIANCE":   {Name: "Reliance Industries Ltd.", Sector: "Oil & Gas"},
	"SBILIFE":    {Name: "SBI Life Insurance Company Ltd.", Sector: "Insurance"},
	"SHRIRAMFIN": {Name: "Shriram Finance Ltd.", Sector: "Financial Services"},
	"SBIN":       {Name: "State Bank of India", Sector: "Banking"},
	"SUNPHARMA":  {Name: "Sun Pharmaceutical Industries Ltd.", Sector: "Pharma"},
	"TCS":        {Name: "Tata Consultancy Services Ltd.", Sector: "IT"},
	"TATACONSUM": {Name: "Tata Consumer Products Ltd.", Sector: "FMCG"},
	"TATAMOTORS": {Name: "Tata Motors Ltd.", Sector: "Automobile"},
	"TATASTEEL":  {Name: "Tata Steel Ltd.", Sector: "Metals"},
	"TECHM":      {Name: "Tech Mahindra Ltd.", Sector: "IT"},
	"TITAN":      {Name: "Titan Company Ltd.", Sector: "Consumer Goods"},
	"ULTRACEMCO": {Name: "UltraTech Cement Ltd.", Sector: "Cement"},
	"UPL":        {Name: "UPL Ltd.", Sector: "Chemicals"},
	"WIPRO":      {Name: "Wipro Ltd.", Sector: "IT"},
}
