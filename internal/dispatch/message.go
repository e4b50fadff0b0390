package dispatch

import (
	"fmt"
	"strings"

	"github.com/gameradar/dealwatch/internal/model"
)

// Message is the webhook payload body.
type Message struct {
	Content string `json:"content"`
}

// FormatDeal renders one deal as an announcement. roleMention, when set, is
// prepended so channel subscribers get pinged.
func FormatDeal(d *model.Deal, roleMention string) *Message {
	var b strings.Builder

	if roleMention != "" {
		b.WriteString(roleMention)
		b.WriteString(" ")
	}
	if d.StarRating != "" {
		b.WriteString(d.StarRating)
		b.WriteString(" ")
	}

	switch d.Kind {
	case model.KindFree, model.KindGiveaway:
		fmt.Fprintf(&b, "**%s** is FREE", d.Title)
		if d.OriginalPrice > 0 {
			fmt.Fprintf(&b, " (was %.2f %s)", d.OriginalPrice, currency(d))
		}
	case model.KindFreeWeekend:
		fmt.Fprintf(&b, "**%s** — free to play this weekend", d.Title)
		if d.EndsAt != nil {
			fmt.Fprintf(&b, " until %s", d.EndsAt.Format("Mon Jan 2 15:04 MST"))
		}
	case model.KindBundle:
		fmt.Fprintf(&b, "**%s** bundle from %.2f %s", d.Title, d.CurrentPrice, currency(d))
	default:
		fmt.Fprintf(&b, "**%s** — %d%% off: %.2f %s (was %.2f)",
			d.Title, d.DiscountPercent, d.CurrentPrice, currency(d), d.OriginalPrice)
	}

	if d.Review != nil && d.Review.Percent > 0 {
		fmt.Fprintf(&b, "\n%d%% positive", d.Review.Percent)
		if d.Review.Count > 0 {
			fmt.Fprintf(&b, " (%d reviews)", d.Review.Count)
		}
	}

	if d.AIFlag == model.FlagSuspicious && d.Suspicion != nil {
		fmt.Fprintf(&b, "\n⚠️ This deal looks suspicious (%s): %s",
			d.Suspicion.Verdict, d.Suspicion.Recommendation)
	}

	if d.StoreURL != "" {
		b.WriteString("\n")
		b.WriteString(d.StoreURL)
	}

	return &Message{Content: b.String()}
}

func currency(d *model.Deal) string {
	if d.Currency != "" {
		return d.Currency
	}
	return "EUR"
}
