package extdata

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"
)

type schemeRecord struct {
	SchemeName         string `json:"scheme_name"`
	Description        string `json:"description"`
	Benefits           string `json:"benefits"`
	Eligibility        string `json:"eligibility"`
	ApplicationProcess string `json:"application_process"`
	Ministry           string `json:"ministry"`
	State              string `json:"state"`
	Category           string `json:"category"`
	SubsidyAmount      string `json:"subsidy_amount"`
	ApplicationLink    string `json:"application_link"`
}

type schemesResponse struct {
	Records []schemeRecord `json:"records"`
}

// Schemes returns government schemes for the state/category, falling
// back to the fixed national catalogue when the registry is
// unreachable.
func (cl *Client) Schemes(ctx context.Context, q SchemesQuery) *SchemesData {
	key := fmt.Sprintf("schemes_%s_%s", q.State, q.Category)

	payload, err := cl.cache.GetOrFetch(key, func() (any, error) {
		return cl.fetchSchemes(ctx, q)
	})
	if err != nil {
		cl.log.Warn("scheme fetch failed, using catalogue",
			zap.String("state", q.State), zap.Error(err))
		return MockSchemes(q.State, q.Category)
	}
	return payload.(*SchemesData)
}

func (cl *Client) fetchSchemes(ctx context.Context, q SchemesQuery) (*SchemesData, error) {
	params := url.Values{}
	params.Set("api-key", cl.cfg.SchemesAPIKey)
	params.Set("format", "json")
	if q.State != "" {
		params.Set("state", q.State)
	}
	if q.Category != "" {
		params.Set("category", q.Category)
	}

	var resp schemesResponse
	if err := cl.getJSON(ctx, schemesTimeout, cl.cfg.SchemesBaseURL+"/schemes", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Records) == 0 {
		return nil, fmt.Errorf("no scheme records returned")
	}

	schemes := make([]Scheme, 0, len(resp.Records))
	for _, r := range resp.Records {
		state := r.State
		if state == "" {
			state = "All India"
		}
		schemes = append(schemes, Scheme{
			Name:               r.SchemeName,
			Description:        r.Description,
			Benefits:           r.Benefits,
			Eligibility:        r.Eligibility,
			ApplicationProcess: r.ApplicationProcess,
			Ministry:           r.Ministry,
			State:              state,
			Category:           r.Category,
			SubsidyAmount:      r.SubsidyAmount,
			Link:               r.ApplicationLink,
		})
	}

	return &SchemesData{
		Schemes:      schemes,
		TotalSchemes: len(schemes),
		Summary:      fmt.Sprintf("Found %d government schemes for farmers", len(schemes)),
		LastUpdated:  time.Now(),
	}, nil
}

// MockSchemes is the catalogue of well-known national schemes, plus a
// synthesized state entry when a state is given.
func MockSchemes(state, category string) *SchemesData {
	schemes := []Scheme{
		{
			Name:               "PM-KISAN (Pradhan Mantri Kisan Samman Nidhi)",
			Description:        "Direct income support of ₹6,000 per year to farmer families",
			Benefits:           "₹6,000 per year in 3 equal installments",
			Eligibility:        "All land-holding farmer families",
			ApplicationProcess: "Apply online at pmkisan.gov.in or through CSC centers",
			Ministry:           "Ministry of Agriculture",
			State:              "All India",
			Category:           "Income Support",
			SubsidyAmount:      "₹6,000/year",
			Link:               "https://pmkisan.gov.in",
		},
		{
			Name:               "PM Fasal Bima Yojana (PMFBY)",
			Description:        "Crop insurance scheme to protect farmers against crop loss",
			Benefits:           "Insurance coverage for crop loss due to natural calamities",
			Eligibility:        "All farmers growing notified crops",
			ApplicationProcess: "Apply through bank, CSC or PMFBY portal",
			Ministry:           "Ministry of Agriculture",
			State:              "All India",
			Category:           "Crop Insurance",
			SubsidyAmount:      "Premium subsidy up to 98%",
			Link:               "https://pmfby.gov.in",
		},
		{
			Name:               "Kisan Credit Card (KCC)",
			Description:        "Provides farmers with affordable credit for agricultural needs",
			Benefits:           "Credit at 4% interest rate (with timely repayment)",
			Eligibility:        "All farmers, sharecroppers, tenant farmers",
			ApplicationProcess: "Apply at any bank branch with land documents",
			Ministry:           "Ministry of Finance",
			State:              "All India",
			Category:           "Credit/Loan",
			SubsidyAmount:      "Interest subvention of 3%",
			Link:               "https://www.nabard.org",
		},
		{
			Name:               "Soil Health Card Scheme",
			Description:        "Provides soil health cards with crop-wise nutrient recommendations",
			Benefits:           "Free soil testing and recommendations",
			Eligibility:        "All farmers",
			ApplicationProcess: "Contact nearest Krishi Vigyan Kendra or agriculture office",
			Ministry:           "Ministry of Agriculture",
			State:              "All India",
			Category:           "Soil Health",
			SubsidyAmount:      "Free service",
			Link:               "https://soilhealth.dac.gov.in",
		},
		{
			Name:               "PM Krishi Sinchai Yojana (PMKSY)",
			Description:        "Promotes efficient water use through micro-irrigation",
			Benefits:           "Subsidy on drip and sprinkler irrigation systems",
			Eligibility:        "All farmers",
			ApplicationProcess: "Apply through state agriculture department",
			Ministry:           "Ministry of Agriculture",
			State:              "All India",
			Category:           "Irrigation",
			SubsidyAmount:      "Up to 55-90% subsidy",
			Link:               "https://pmksy.gov.in",
		},
		{
			Name:               "National Mission on Sustainable Agriculture (NMSA)",
			Description:        "Promotes sustainable farming practices",
			Benefits:           "Training and financial support for sustainable practices",
			Eligibility:        "All farmers adopting sustainable practices",
			ApplicationProcess: "Contact district agriculture officer",
			Ministry:           "Ministry of Agriculture",
			State:              "All India",
			Category:           "Sustainable Farming",
			SubsidyAmount:      "Varies by component",
			Link:               "https://nmsa.dac.gov.in",
		},
	}

	summary := fmt.Sprintf("Found %d government schemes for farmers", len(schemes))
	if state != "" {
		schemes = append(schemes, Scheme{
			Name:               fmt.Sprintf("%s Kisan Kalyan Yojana", state),
			Description:        fmt.Sprintf("State-specific welfare scheme for farmers in %s", state),
			Benefits:           "Additional financial support and subsidies",
			Eligibility:        fmt.Sprintf("Farmers residing in %s", state),
			ApplicationProcess: "Apply through state agriculture portal",
			Ministry:           fmt.Sprintf("%s Agriculture Department", state),
			State:              state,
			Category:           "State Scheme",
			SubsidyAmount:      "Varies",
			Link:               "#",
		})
		summary = fmt.Sprintf("Found %d government schemes for farmers in %s", len(schemes), state)
	}

	return &SchemesData{
		Schemes:      schemes,
		TotalSchemes: len(schemes),
		Summary:      summary,
		LastUpdated:  time.Now(),
		IsMockData:   true,
	}
}
