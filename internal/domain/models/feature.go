package models

// FeatureVector is the fixed 14-feature input to the predictive model.
// It is derived per evaluation and never persisted.
type FeatureVector struct {
	PriceChange1  float64 // 1-bar return
	PriceChange5  float64 // 5-bar return
	PriceChange20 float64 // 20-bar return
	Volatility20  float64 // stddev of 20-bar returns
	RSINorm       float64 // RSI rescaled to [-1,1]
	MACDHist      float64 // MACD histogram
	BollPosition  float64 // position inside Bollinger band, [-1,1]
	LogVolRatio   float64 // ln(volume / 20-bar average volume)
	TrendSlope    float64 // normalized 20-bar regression slope
	SRDistance    float64 // distance to nearest support/resistance
	PatternScore  float64
	NewsSentiment float64
	RegimeScore   float64
	Seasonality   float64
}

// NumFeatures is the dimensionality of FeatureVector.
const NumFeatures = 14

// Slice returns the features in a fixed order for scaling and model input.
func (f FeatureVector) Slice() []float64 {
	return []float64{
		f.PriceChange1, f.PriceChange5, f.PriceChange20, f.Volatility20,
		f.RSINorm, f.MACDHist, f.BollPosition, f.LogVolRatio,
		f.TrendSlope, f.SRDistance, f.PatternScore, f.NewsSentiment,
		f.RegimeScore, f.Seasonality,
	}
}
