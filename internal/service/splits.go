package service

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/loyalty-pos/internal/model"
)

// SplitLadder is how a purchased bundle is cut into coupons: one coupon per
// split value plus one bonus coupon.
type SplitLadder struct {
	Splits []decimal.Decimal
	Bonus  decimal.Decimal
	Label  string
}

// Total returns the sum of the split values.
func (l SplitLadder) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, s := range l.Splits {
		sum = sum.Add(s)
	}
	return sum
}

var defaultBundleTotal = decimal.NewFromInt(10)

const (
	BundleFamily         = "family"
	BundleMeatFamily     = "meat_family"
	BundleYouth          = "youth"
	BundleMeatIndividual = "meat_individual"
	BundleIndividual     = "individual"
)

var bundleLadders = map[string]SplitLadder{
	BundleFamily:         ladder("family", 25, 3, 5, 7, 10),
	BundleMeatFamily:     ladder("meat family", 10, 2, 2, 3, 3),
	BundleYouth:          ladder("youth", 12, 2, 4, 3, 3),
	BundleMeatIndividual: ladder("meat individual", 5, 2.5, 2.5),
	BundleIndividual:     ladder("individual", 12, 3, 3, 3, 3),
}

var (
	familyWords     = []string{"عائل", "family"}
	meatWords       = []string{"لحم", "meat"}
	youthWords      = []string{"شباب", "youth"}
	individualWords = []string{"افراد", "أفراد", "فرد", "individual", "single"}
)

// nameRules are checked in order against the campaign's names.
// Every group in require must match at least one word; no word in exclude may match.
var nameRules = []struct {
	bundleType string
	require    [][]string
	exclude    []string
}{
	{BundleFamily, [][]string{familyWords}, meatWords},
	{BundleMeatFamily, [][]string{meatWords, familyWords}, nil},
	{BundleYouth, [][]string{youthWords}, nil},
	{BundleMeatIndividual, [][]string{meatWords, individualWords}, nil},
	{BundleIndividual, [][]string{individualWords}, nil},
}

type splitRule func(c *model.Campaign, total decimal.Decimal) (SplitLadder, bool)

var splitChain = []splitRule{
	splitsFromConfig,
	splitsFromBundleType,
	splitsFromName,
}

// ResolveSplitLadder picks the split ladder for a bundle campaign: explicit
// reward_config.splits, then the bundle_type table, then keywords in the campaign
// name, then an even four-way split of the reward value.
func ResolveSplitLadder(c *model.Campaign) SplitLadder {
	total := c.RewardConfig.Value
	if !total.IsPositive() {
		total = defaultBundleTotal
	}

	for _, rule := range splitChain {
		if l, ok := rule(c, total); ok {
			return l
		}
	}
	return evenSplit(total)
}

func splitsFromConfig(c *model.Campaign, total decimal.Decimal) (SplitLadder, bool) {
	if len(c.RewardConfig.Splits) == 0 {
		return SplitLadder{}, false
	}
	// coupon values are stored to the cent
	splits := make([]decimal.Decimal, len(c.RewardConfig.Splits))
	for i, v := range c.RewardConfig.Splits {
		splits[i] = v.Round(2)
	}
	return SplitLadder{Splits: splits, Bonus: total.Round(2), Label: c.Name}, true
}

func splitsFromBundleType(c *model.Campaign, _ decimal.Decimal) (SplitLadder, bool) {
	return lookupLadder(strings.ToLower(strings.TrimSpace(c.BundleType)))
}

func splitsFromName(c *model.Campaign, _ decimal.Decimal) (SplitLadder, bool) {
	name := strings.ToLower(c.Name + " " + c.NameEN)
	for _, rule := range nameRules {
		if containsAny(name, rule.exclude) {
			continue
		}
		matched := true
		for _, group := range rule.require {
			if !containsAny(name, group) {
				matched = false
				break
			}
		}
		if matched {
			return lookupLadder(rule.bundleType)
		}
	}
	return SplitLadder{}, false
}

func evenSplit(total decimal.Decimal) SplitLadder {
	part := total.Div(decimal.NewFromInt(4)).Round(1)
	return SplitLadder{
		Splits: []decimal.Decimal{part, part, part, part},
		Bonus:  total,
		Label:  "default",
	}
}

func lookupLadder(bundleType string) (SplitLadder, bool) {
	l, ok := bundleLadders[bundleType]
	if !ok {
		return SplitLadder{}, false
	}
	splits := make([]decimal.Decimal, len(l.Splits))
	copy(splits, l.Splits)
	return SplitLadder{Splits: splits, Bonus: l.Bonus, Label: l.Label}, true
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func ladder(label string, bonus float64, splits ...float64) SplitLadder {
	l := SplitLadder{Bonus: decimal.NewFromFloat(bonus), Label: label}
	for _, s := range splits {
		l.Splits = append(l.Splits, decimal.NewFromFloat(s))
	}
	return l
}
