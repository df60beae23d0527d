package insight

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bodycount/backend/internal/models"
)

// SystemPrompt is the fixed instruction sent with every generation request.
const SystemPrompt = "You are an empathetic relationship psychologist. " +
	"Respond in English using structured markdown with clear section headings. " +
	"Be warm, honest and non-judgmental; never moralize."

// historyExcerptLimit caps each previous-analysis excerpt rendered into the
// prompt. Distinct from the 1000-character cap the archive's context window
// already applied.
const historyExcerptLimit = 200

// Request is the ephemeral input tuple for one generation. History is
// bounded to the 5 most recent entries before prompt assembly.
type Request struct {
	Relationships []models.Relationship
	Wishlist      []models.WishlistItem
	Mirror        *models.MirrorData
	UserAge       *int
	History       []models.ContextEntry
}

type ageBand struct {
	min, max int
	label    string
}

// The six bands partition [18, 99] with no gap or overlap; labels are used
// verbatim in the prompt.
var ageBands = []ageBand{
	{18, 25, "18-25: early adulthood, exploring identity and first serious bonds"},
	{26, 35, "26-35: building an adult life, career pressure and long-term partnership questions"},
	{36, 45, "36-45: established adulthood, re-examining patterns and commitments"},
	{46, 55, "46-55: midlife perspective, seeking depth and meaning in connection"},
	{56, 65, "56-65: later adulthood, companionship and taking stock"},
	{66, 99, "66+: senior years, legacy, tenderness and emotional closeness"},
}

// AgeBandLabel maps an age to its band label. Ages outside [18, 99] are
// rejected at the settings boundary and never reach here; the fallback
// clamps rather than panics.
func AgeBandLabel(age int) string {
	for _, b := range ageBands {
		if age >= b.min && age <= b.max {
			return b.label
		}
	}
	if age < ageBands[0].min {
		return ageBands[0].label
	}
	return ageBands[len(ageBands)-1].label
}

// BuildPrompt renders the request into the provider prompt. Deterministic:
// every section is emitted only when its input is present, and field order
// within a line is fixed.
func BuildPrompt(req Request) string {
	var b strings.Builder

	if req.UserAge != nil {
		b.WriteString("## User Profile\n")
		fmt.Fprintf(&b, "Age: %d (%s)\n\n", *req.UserAge, AgeBandLabel(*req.UserAge))
	}

	if len(req.Relationships) > 0 {
		b.WriteString("## Relationships\n")
		for _, r := range req.Relationships {
			fmt.Fprintf(&b, "- type: %s; rating: %s; duration: %s; location: %s; feelings: %s\n",
				r.Type, ratingOrNA(r.Rating), orNA(r.Duration), orNA(r.Location), orNA(r.Feelings))
		}
		b.WriteString("\n")
	}

	if len(req.Wishlist) > 0 {
		b.WriteString("## Wishlist\n")
		for _, w := range req.Wishlist {
			fmt.Fprintf(&b, "- %s (category: %s, priority: %s, completed: %s)\n",
				w.Title, w.Category, w.Priority, yesNo(w.Completed))
		}
		b.WriteString("\n")
	}

	if m := req.Mirror; m != nil && (len(m.Self) > 0 || len(m.Others) > 0 || len(m.Growth) > 0 || m.ConfidenceLevel != nil) {
		b.WriteString("## Self-Reflection\n")
		if len(m.Self) > 0 {
			fmt.Fprintf(&b, "About myself: %s\n", strings.Join(m.Self, ", "))
		}
		if len(m.Others) > 0 {
			fmt.Fprintf(&b, "How others see me: %s\n", strings.Join(m.Others, ", "))
		}
		if len(m.Growth) > 0 {
			fmt.Fprintf(&b, "Where I want to grow: %s\n", strings.Join(m.Growth, ", "))
		}
		if m.ConfidenceLevel != nil {
			fmt.Fprintf(&b, "Confidence level: %d/10\n", *m.ConfidenceLevel)
		}
		b.WriteString("\n")
	}

	if len(req.History) > 0 {
		b.WriteString("## Previous Analyses\n")
		for _, h := range req.History {
			fmt.Fprintf(&b, "- %s (%s): %s", h.Title, h.Date.Format("January 2, 2006"), excerpt(h.Analysis))
			if len(h.Tags) > 0 {
				fmt.Fprintf(&b, " [tags: %s]", strings.Join(h.Tags, ", "))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("## Instructions\n")
	b.WriteString("Write a psychological analysis of my relationship life based on the data above. Structure the response with exactly these markdown sections:\n")
	sections := []string{"Patterns", "Strengths", "Improvement Areas", "Practical Recommendations", "Overview"}
	if len(req.History) > 0 {
		sections = append(sections, "Evolution")
	}
	for i, s := range sections {
		b.WriteString(strconv.Itoa(i+1) + ". " + s + "\n")
	}
	if len(req.History) > 0 {
		b.WriteString("In the Evolution section, describe how the picture has changed since the previous analyses.\n")
	}
	b.WriteString("Close with one encouraging sentence. Keep the tone supportive and concrete.\n")
	if req.UserAge != nil {
		fmt.Fprintf(&b, "Calibrate the practical recommendations to the %s age band.\n", AgeBandLabel(*req.UserAge))
	}
	return b.String()
}

func excerpt(s string) string {
	runes := []rune(s)
	if len(runes) <= historyExcerptLimit {
		return s
	}
	return string(runes[:historyExcerptLimit]) + "..."
}

func orNA(s *string) string {
	if s == nil || *s == "" {
		return "N/A"
	}
	return *s
}

func ratingOrNA(r *int) string {
	if r == nil {
		return "N/A"
	}
	return fmt.Sprintf("%d/10", *r)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
