package coach

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/franckalain/wellness/internal/locale"
	"github.com/franckalain/wellness/internal/models"
)

// Persona is the coach character used for text chat.
const Persona = `You are a friendly and knowledgeable AI wellness coach. You help the user with nutrition, ` +
	`sleep, physical activity and healthy habits. Give short, practical, personal advice ` +
	`based on the user's data. You are not a doctor: for medical problems recommend seeing a specialist.`

// VoicePersona is used for realtime voice sessions.
const VoicePersona = `You are a friendly AI wellness coach talking to the user by voice. ` +
	`Keep answers short and conversational, one or two sentences at a time.`

const maxRecentMeals = 10

// DayContext is what the coach knows about the user today. Nil fields are
// absent and produce no line; zero values are real data and are printed.
type DayContext struct {
	Profile          *models.UserProfile
	Macros           *models.Macros // eaten today
	RecentMeals      []*models.FoodEntry
	WaterMl          *int
	ActivityCalories *int
	LastSleep        *models.SleepEntry
	Sleep            *models.SleepConfig
}

// ComposeSystemInstruction builds the full system instruction for a chat turn.
func ComposeSystemInstruction(persona string, pack *locale.Pack, dc DayContext) string {
	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Always reply in %s, including voice replies, whatever language the data below is in.\n", pack.Language)
	b.WriteString("When information from web search or maps is available, use it and mention the places or sources.\n")
	b.WriteString("If the user asks to set an alarm, confirm the exact time you set.\n")
	b.WriteString("If you agree to change the user's wellness plan (goals, diet, training, sleep), " +
		"append at the very end of your reply a tag of the form [UPDATE_PLAN: short description of the requested changes]. " +
		"Never use this tag otherwise.\n")

	if ctx := ComposeContext(dc); ctx != "" {
		b.WriteString("\nUser context and history:\n")
		b.WriteString(ctx)
	}
	return b.String()
}

// ComposeContext renders the non-empty parts of dc, one fact per line.
func ComposeContext(dc DayContext) string {
	var lines []string

	if p := dc.Profile; p != nil {
		var parts []string
		if p.Name != "" {
			parts = append(parts, "name "+p.Name)
		}
		if p.Age > 0 {
			parts = append(parts, fmt.Sprintf("age %d", p.Age))
		}
		if p.Height > 0 {
			parts = append(parts, "height "+num(p.Height)+" cm")
		}
		if p.Weight > 0 {
			parts = append(parts, "weight "+num(p.Weight)+" kg")
		}
		parts = append(parts, "goal: "+goalLabel(p.Goal))
		lines = append(lines, "Profile: "+strings.Join(parts, ", "))
		lines = append(lines, fmt.Sprintf("Daily goals: %d kcal, %d steps", p.DailyCalorieGoal, p.DailyStepGoal))

		if p.Allergies != "" {
			lines = append(lines, "Allergies: "+p.Allergies)
		}
		if p.Preferences != "" {
			lines = append(lines, "Food preferences: "+p.Preferences)
		}
		if p.HealthConditions != "" {
			lines = append(lines, "Health conditions: "+p.HealthConditions)
		}
	}

	if m := dc.Macros; m != nil {
		lines = append(lines, fmt.Sprintf("Eaten today: %s kcal, protein %s g, fat %s g, carbs %s g",
			num(m.Calories), num(m.Protein), num(m.Fat), num(m.Carbs)))
	}

	if len(dc.RecentMeals) > 0 {
		meals := dc.RecentMeals
		if len(meals) > maxRecentMeals {
			meals = meals[:maxRecentMeals]
		}
		names := make([]string, 0, len(meals))
		for _, f := range meals {
			names = append(names, fmt.Sprintf("%s (%s kcal)", f.Name, num(f.Macros.Calories)))
		}
		lines = append(lines, "Recent meals: "+strings.Join(names, "; "))
	}

	if dc.WaterMl != nil {
		lines = append(lines, fmt.Sprintf("Water drunk today: %d ml", *dc.WaterMl))
	}
	if dc.ActivityCalories != nil {
		lines = append(lines, fmt.Sprintf("Burned in workouts today: %d kcal", *dc.ActivityCalories))
	}
	if s := dc.LastSleep; s != nil {
		lines = append(lines, fmt.Sprintf("Last sleep: %s h, quality %d/10", num(s.DurationHours), s.Quality))
	}
	if s := dc.Sleep; s != nil {
		alarm := "off"
		if s.WakeAlarmEnabled {
			alarm = "on"
		}
		lines = append(lines, fmt.Sprintf("Sleep settings: target %s h, bedtime %s, wake-up %s, wake alarm %s",
			num(s.TargetHours), s.BedTime, s.WakeTime, alarm))
	}

	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func goalLabel(g models.Goal) string {
	switch g {
	case models.GoalLoseWeight:
		return "weight loss"
	case models.GoalGainMuscle:
		return "muscle gain"
	default:
		return "maintenance"
	}
}

// num prints a float with at most one decimal and no trailing zeros.
func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}
