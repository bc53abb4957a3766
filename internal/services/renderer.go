package services

import (
	"strings"
	"time"
)

// RenderMessage substitutes {{name}} placeholders with values from ctx.
// Unresolved placeholders are left as literal text so preview rendering never
// fails on incomplete example data.
func RenderMessage(body string, ctx map[string]string) string {
	if body == "" || len(ctx) == 0 {
		return body
	}
	pairs := make([]string, 0, len(ctx)*2)
	for name, value := range ctx {
		pairs = append(pairs, "{{"+name+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(body)
}

// StudentRenderContext builds the substitution context for a real student at
// send time. Rendering is re-done at delivery with fresh data; the stored
// payload is only a display snapshot.
type RenderInput struct {
	FirstName string
	FullName  string
	PlanName  string
	Now       time.Time
}

func StudentRenderContext(in RenderInput) map[string]string {
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return map[string]string{
		"first_name": in.FirstName,
		"full_name":  in.FullName,
		"plan_name":  in.PlanName,
		"date":       now.Format("02/01/2006"),
		"time":       now.Format("15:04"),
	}
}

// PreviewContext supplies canned example values so editors can see a
// representative rendering before any real student exists.
func PreviewContext() map[string]string {
	return map[string]string{
		"first_name": "Maria",
		"full_name":  "Maria Silva",
		"plan_name":  "Plano Trimestral",
		"date":       "28/01/2025",
		"time":       "10:00",
	}
}
