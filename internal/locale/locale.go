// Package locale holds the per-language keyword lists and user-facing strings.
// Packs are plain data so they can be replaced from a YAML file at runtime.
package locale

import (
	"fmt"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Keywords drive intent detection on user messages.
type Keywords struct {
	Search []string `yaml:"search"`
	Maps   []string `yaml:"maps"`
	Alarm  []string `yaml:"alarm"`
}

// Messages are short strings shown to the user. Entries ending in "f" are
// format strings taking one %s argument.
type Messages struct {
	Greeting           string `yaml:"greeting"`
	Apology            string `yaml:"apology"`
	EmptyReply         string `yaml:"empty_reply"`
	AlarmSetf          string `yaml:"alarm_set"`
	PlanUpdated        string `yaml:"plan_updated"`
	PlanUpdateFailed   string `yaml:"plan_update_failed"`
	RoadmapFailed      string `yaml:"roadmap_failed"`
	ProfileRequired    string `yaml:"profile_required"`
	AddressNotFound    string `yaml:"address_not_found"`
	AddressRequired    string `yaml:"address_required"`
	LocationDenied     string `yaml:"location_denied"`
	RoutesUnavailable  string `yaml:"routes_unavailable"`
	WalkTof            string `yaml:"walk_to"`
	FoodAnalysisFailed string `yaml:"food_analysis_failed"`
	InvalidRequest     string `yaml:"invalid_request"`
	NotFound           string `yaml:"not_found"`
	InternalError      string `yaml:"internal_error"`
	VoiceUnavailable   string `yaml:"voice_unavailable"`
}

// Pack is everything language specific.
type Pack struct {
	Code     string   `yaml:"code"`
	Language string   `yaml:"language"` // language name used in AI instructions
	Keywords Keywords `yaml:"keywords"`
	Messages Messages `yaml:"messages"`
}

// Defaults returns the built-in packs keyed by code.
func Defaults() map[string]*Pack {
	return map[string]*Pack{
		"ru": russian(),
		"en": english(),
	}
}

func russian() *Pack {
	return &Pack{
		Code:     "ru",
		Language: "Russian",
		Keywords: Keywords{
			Search: []string{"новости", "поиск", "найди", "инфо", "рецепт", "исследование", "цена", "сколько", "кто", "когда", "погода", "состав"},
			Maps:   []string{"где", "карта", "рядом", "найти", "адрес", "маршрут", "магазин", "зал", "аптека", "больница", "парк", "ресторан", "кафе", "прогулка"},
			Alarm:  []string{"будильник", "разбуди", "подъем", "подъём"},
		},
		Messages: Messages{
			Greeting:           "Привет! Я твой ИИ-тренер по здоровью. Я вижу твои данные по питанию, сну и активности. Спрашивай меня о чем угодно!",
			Apology:            "Извините, возникли проблемы с подключением к серверу.",
			EmptyReply:         "Не удалось сгенерировать ответ.",
			AlarmSetf:          "Готово! Я установил будильник на **%s**.",
			PlanUpdated:        "**✅ План успешно обновлен!** Зайдите в профиль, чтобы увидеть новую стратегию.",
			PlanUpdateFailed:   "❌ Не удалось обновить план. Попробуйте еще раз.",
			RoadmapFailed:      "Не удалось сгенерировать план.",
			ProfileRequired:    "Сначала заполните профиль.",
			AddressNotFound:    "Не удалось найти такой адрес. Попробуйте уточнить.",
			AddressRequired:    "Сначала подтвердите адрес.",
			LocationDenied:     "Разрешите доступ к геолокации, чтобы найти маршруты рядом, или укажите адрес.",
			RoutesUnavailable:  "Не удалось найти маршруты. Попробуйте позже.",
			WalkTof:            "Прогулка до %s",
			FoodAnalysisFailed: "Не удалось распознать блюдо. Попробуйте другое фото.",
			InvalidRequest:     "Некорректный запрос.",
			NotFound:           "Запись не найдена.",
			InternalError:      "Что-то пошло не так. Попробуйте позже.",
			VoiceUnavailable:   "Голосовой режим недоступен.",
		},
	}
}

func english() *Pack {
	return &Pack{
		Code:     "en",
		Language: "English",
		Keywords: Keywords{
			Search: []string{"news", "search", "look up", "info", "recipe", "research", "price", "how much", "who", "when", "weather", "ingredients"},
			Maps:   []string{"where", "map", "nearby", "near me", "address", "route", "store", "shop", "gym", "pharmacy", "hospital", "park", "restaurant", "cafe", "walk"},
			Alarm:  []string{"alarm", "wake me", "wake-up"},
		},
		Messages: Messages{
			Greeting:           "Hi! I'm your AI wellness coach. I can see your food, sleep and activity data. Ask me anything!",
			Apology:            "Sorry, we are having trouble reaching the server.",
			EmptyReply:         "Could not generate a reply.",
			AlarmSetf:          "Done! Your alarm is set for **%s**.",
			PlanUpdated:        "**✅ Plan updated!** Open your profile to see the new strategy.",
			PlanUpdateFailed:   "❌ Could not update the plan. Please try again.",
			RoadmapFailed:      "Could not generate a plan.",
			ProfileRequired:    "Please fill in your profile first.",
			AddressNotFound:    "Could not find that address. Try to be more specific.",
			AddressRequired:    "Please confirm the address first.",
			LocationDenied:     "Allow location access to find walks nearby, or enter an address.",
			RoutesUnavailable:  "Could not find routes. Please try later.",
			WalkTof:            "Walk to %s",
			FoodAnalysisFailed: "Could not recognize the dish. Try another photo.",
			InvalidRequest:     "Invalid request.",
			NotFound:           "Entry not found.",
			InternalError:      "Something went wrong. Please try later.",
			VoiceUnavailable:   "Voice mode is unavailable.",
		},
	}
}

// Lookup returns the built-in pack for code, falling back to Russian.
func Lookup(code string) *Pack {
	if p, ok := Defaults()[code]; ok {
		return p
	}
	return russian()
}

// LoadFile reads a pack from YAML. Fields missing in the file keep the
// values of the built-in pack with the same code.
func LoadFile(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read locale file: %w", err)
	}
	var raw Pack
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse locale file: %w", err)
	}
	base := Lookup(raw.Code)
	merge(base, &raw)
	return base, nil
}

func merge(dst, src *Pack) {
	if src.Language != "" {
		dst.Language = src.Language
	}
	if len(src.Keywords.Search) > 0 {
		dst.Keywords.Search = src.Keywords.Search
	}
	if len(src.Keywords.Maps) > 0 {
		dst.Keywords.Maps = src.Keywords.Maps
	}
	if len(src.Keywords.Alarm) > 0 {
		dst.Keywords.Alarm = src.Keywords.Alarm
	}
	mergeString(&dst.Messages.Greeting, src.Messages.Greeting)
	mergeString(&dst.Messages.Apology, src.Messages.Apology)
	mergeString(&dst.Messages.EmptyReply, src.Messages.EmptyReply)
	mergeString(&dst.Messages.AlarmSetf, src.Messages.AlarmSetf)
	mergeString(&dst.Messages.PlanUpdated, src.Messages.PlanUpdated)
	mergeString(&dst.Messages.PlanUpdateFailed, src.Messages.PlanUpdateFailed)
	mergeString(&dst.Messages.RoadmapFailed, src.Messages.RoadmapFailed)
	mergeString(&dst.Messages.ProfileRequired, src.Messages.ProfileRequired)
	mergeString(&dst.Messages.AddressNotFound, src.Messages.AddressNotFound)
	mergeString(&dst.Messages.AddressRequired, src.Messages.AddressRequired)
	mergeString(&dst.Messages.LocationDenied, src.Messages.LocationDenied)
	mergeString(&dst.Messages.RoutesUnavailable, src.Messages.RoutesUnavailable)
	mergeString(&dst.Messages.WalkTof, src.Messages.WalkTof)
	mergeString(&dst.Messages.FoodAnalysisFailed, src.Messages.FoodAnalysisFailed)
	mergeString(&dst.Messages.InvalidRequest, src.Messages.InvalidRequest)
	mergeString(&dst.Messages.NotFound, src.Messages.NotFound)
	mergeString(&dst.Messages.InternalError, src.Messages.InternalError)
	mergeString(&dst.Messages.VoiceUnavailable, src.Messages.VoiceUnavailable)
}

func mergeString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// Store holds the active pack and allows it to be swapped atomically.
type Store struct {
	current atomic.Pointer[Pack]
}

func NewStore(p *Pack) *Store {
	s := &Store{}
	s.current.Store(p)
	return s
}

// Current returns the active pack. Callers must not mutate it.
func (s *Store) Current() *Pack {
	return s.current.Load()
}

func (s *Store) Set(p *Pack) {
	s.current.Store(p)
}
