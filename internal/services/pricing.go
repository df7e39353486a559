package services

import (
	"log"

	"gorm.io/gorm"

	"github.com/squaresclub/gatedb/internal/models"
)

type PriceRange struct {
	Low  int
	High int
}

func (pr PriceRange) Display() string {
	return models.FormatPriceRange(pr.Low, pr.High)
}

// CategoryPrices holds what one fee category pays: the single-dance
// price plus each valid period's subscription price, keyed by slug.
type CategoryPrices struct {
	Dance PriceRange
	Subs  map[string]PriceRange
}

// PriceMatrix computes fee category -> prices for one dance.
// A category without a DancePrice row in the dance's scheme is omitted
// entirely (and logged); a missing period price just omits that
// period's entry. Callers must treat absence as "cannot determine
// price", not as zero.
func PriceMatrix(gdb *gorm.DB, dance *models.Dance, periods []models.SubscriptionPeriod) (map[string]CategoryPrices, error) {
	var cats []models.FeeCategory
	if err := gdb.Order("slug").Find(&cats).Error; err != nil {
		return nil, err
	}

	var dancePrices []models.DancePrice
	if err := gdb.Where("price_scheme_id = ?", dance.PriceSchemeID).Find(&dancePrices).Error; err != nil {
		return nil, err
	}
	danceByCat := make(map[string]models.DancePrice, len(dancePrices))
	for _, dp := range dancePrices {
		danceByCat[dp.FeeCatSlug] = dp
	}

	// period slug -> fee cat slug -> price row
	subByPeriod := make(map[string]map[string]models.SubscriptionPeriodPrice, len(periods))
	for _, period := range periods {
		var rows []models.SubscriptionPeriodPrice
		if err := gdb.Where("period_slug = ?", period.Slug).Find(&rows).Error; err != nil {
			return nil, err
		}
		byCat := make(map[string]models.SubscriptionPeriodPrice, len(rows))
		for _, row := range rows {
			byCat[row.FeeCatSlug] = row
		}
		subByPeriod[period.Slug] = byCat
	}

	out := make(map[string]CategoryPrices)
	for _, cat := range cats {
		dp, ok := danceByCat[cat.Slug]
		if !ok {
			log.Printf("pricing: no dance price for fee category %q in scheme %d (dance %d)",
				cat.Slug, dance.PriceSchemeID, dance.ID)
			continue
		}
		cp := CategoryPrices{
			Dance: PriceRange{Low: dp.Low, High: dp.High},
			Subs:  make(map[string]PriceRange),
		}
		for _, period := range periods {
			row, ok := subByPeriod[period.Slug][cat.Slug]
			if !ok {
				log.Printf("pricing: no subscription price for fee category %q in period %q",
					cat.Slug, period.Slug)
				continue
			}
			cp.Subs[period.Slug] = PriceRange{Low: row.Low, High: row.High}
		}
		out[cat.Slug] = cp
	}
	return out, nil
}
