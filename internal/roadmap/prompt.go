package roadmap

import (
	"fmt"
	"strings"

	"github.com/franckalain/wellness/internal/ml"
	"github.com/franckalain/wellness/internal/models"
)

// BuildPrompt asks for four daily targets and a five step plan.
func BuildPrompt(p *models.UserProfile, wishes, language string) string {
	var b strings.Builder
	b.WriteString("Create a wellness plan of 5 concrete steps for the user.\n\n")
	b.WriteString("Profile:\n")
	fmt.Fprintf(&b, "- Goal: %s\n", p.Goal)
	fmt.Fprintf(&b, "- Age: %d, weight: %g kg, height: %g cm, gender: %s, activity level: %s\n",
		p.Age, p.Weight, p.Height, p.Gender, p.ActivityLevel)
	if p.Allergies != "" {
		fmt.Fprintf(&b, "- Allergies: %s\n", p.Allergies)
	}
	if p.Preferences != "" {
		fmt.Fprintf(&b, "- Food preferences: %s\n", p.Preferences)
	}
	if p.HealthConditions != "" {
		fmt.Fprintf(&b, "- Health restrictions: %s\n", p.HealthConditions)
	}

	b.WriteString("\nTASK 1: compute daily targets:\n")
	b.WriteString("- dailyCalories: use the Mifflin-St Jeor equation adjusted for activity and goal " +
		"(a surplus for muscle gain, a deficit for weight loss).\n")
	b.WriteString("- dailyWater: recommended water in ml (usually 30-35 ml per kg of body weight).\n")
	b.WriteString("- dailySteps: recommended steps per day (7000-12000).\n")
	b.WriteString("- sleepHours: recommended sleep duration (7-9).\n")

	b.WriteString("\nTASK 2: write a plan (steps) of exactly 5 items, each with status \"pending\".\n")
	b.WriteString("Include at least one step about the SLEEP SCHEDULE and recovery when it is relevant.\n")

	if wishes = strings.TrimSpace(wishes); wishes != "" {
		fmt.Fprintf(&b, "\nSPECIAL USER WISHES (MUST be taken into account): %s\n", wishes)
	}

	fmt.Fprintf(&b, "\nReturn a JSON object. Write titles and descriptions in %s.", language)
	return b.String()
}

// ResponseSchema is the shape the roadmap call must return.
func ResponseSchema() *ml.Schema {
	return &ml.Schema{
		Type: ml.TypeObject,
		Properties: map[string]*ml.Schema{
			"targets": {
				Type: ml.TypeObject,
				Properties: map[string]*ml.Schema{
					"dailyCalories": {Type: ml.TypeNumber},
					"dailyWater":    {Type: ml.TypeNumber},
					"dailySteps":    {Type: ml.TypeNumber},
					"sleepHours":    {Type: ml.TypeNumber},
				},
				Required: []string{"dailyCalories", "dailyWater", "dailySteps", "sleepHours"},
			},
			"steps": {
				Type: ml.TypeArray,
				Items: &ml.Schema{
					Type: ml.TypeObject,
					Properties: map[string]*ml.Schema{
						"title":       {Type: ml.TypeString},
						"description": {Type: ml.TypeString},
						"status": {
							Type: ml.TypeString,
							Enum: []string{string(models.StatusPending), string(models.StatusInProgress), string(models.StatusCompleted)},
						},
					},
					Required: []string{"title", "description", "status"},
				},
			},
		},
		Required: []string{"targets", "steps"},
	}
}
