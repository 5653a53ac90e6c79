package model

type AdType string

const (
	AdTypeBanner       AdType = "banner"
	AdTypeInterstitial AdType = "interstitial"
	AdTypeRewarded     AdType = "rewarded"
	AdTypeNative       AdType = "native"
)

type AdCode struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	Code string `json:"code" db:"code"`
	Type AdType `json:"type" db:"type"`
}

type AdCodeRequest struct {
	Code string `json:"code"`
}
