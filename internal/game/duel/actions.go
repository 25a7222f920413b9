package duel

// Category groups actions in the mini-app menu.
type Category string

const (
	CategoryDrink   Category = "pice"
	CategoryFood    Category = "hrana"
	CategorySpecial Category = "specijal"
)

// Action is a catalog entry. Deltas apply additively unless Gamble or Reset is set.
type Action struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Emoji    string   `json:"emoji"`
	Cost     int      `json:"cost"`
	Alco     int      `json:"alco"`
	Respect  int      `json:"respect"`
	Stomak   int      `json:"stomak"`
	Category Category `json:"category"`

	// Gamble replaces the deltas with a respect swing decided by the alcometer.
	Gamble bool `json:"gamble,omitempty"`

	// Reset pins the alcometer to ResetAlco and still applies Respect.
	Reset     bool `json:"reset,omitempty"`
	ResetAlco int  `json:"reset_alco,omitempty"`
}

// Gamble window and payouts.
const (
	GambleMinAlco = 40
	GambleMaxAlco = 70
	GambleWin     = 30
	GambleLoss    = -40
)

// Catalog is the fixed action table in menu order.
var Catalog = []Action{
	{Key: "pivo", Label: "Pivo", Emoji: "🍺", Cost: 50, Alco: 10, Respect: 5, Category: CategoryDrink},
	{Key: "rakija", Label: "Rakija", Emoji: "🥃", Cost: 80, Alco: 25, Respect: 15, Stomak: -10, Category: CategoryDrink},
	{Key: "vinjak", Label: "Vinjak", Emoji: "🍷", Cost: 100, Alco: 20, Respect: 10, Stomak: 5, Category: CategoryDrink},
	{Key: "mineralna", Label: "Mineralna", Emoji: "💧", Cost: 30, Alco: -15, Respect: -20, Category: CategoryDrink},

	{Key: "cevapi", Label: "Cevapi", Emoji: "🥩", Cost: 200, Alco: -10, Stomak: 30, Category: CategoryFood},
	{Key: "kajmak_luk", Label: "Kajmak i luk", Emoji: "🧅", Cost: 100, Alco: -5, Stomak: 20, Category: CategoryFood},
	{Key: "kikiriki", Label: "Kikiriki", Emoji: "🥜", Cost: 50, Stomak: 10, Category: CategoryFood},
	{Key: "ajvar_ljuti", Label: "Ljuti ajvar", Emoji: "🌶️", Cost: 0, Respect: 10, Stomak: 5, Category: CategoryFood},

	{Key: "pevaj", Label: "Pevaj pesmu", Emoji: "🎤", Cost: 0, Category: CategorySpecial, Gamble: true},
	{Key: "kafetin", Label: "Kafetin", Emoji: "💊", Cost: 150, Alco: -30, Category: CategorySpecial},
	{Key: "povracaj", Label: "Povracaj", Emoji: "🤮", Cost: 0, Alco: -80, Respect: -50, Category: CategorySpecial, Reset: true, ResetAlco: 20},
}

var catalogIndex = func() map[string]int {
	m := make(map[string]int, len(Catalog))
	for i, a := range Catalog {
		m[a.Key] = i
	}
	return m
}()

// Lookup finds an action by key.
func Lookup(key string) (Action, bool) {
	i, ok := catalogIndex[key]
	if !ok {
		return Action{}, false
	}
	return Catalog[i], true
}

// FlavorTexts holds the bar banter picked after each action.
var FlavorTexts = map[string][]string{
	"pivo": {
		"Konobar: 'Samo jos jedno!'",
		"Hladno pivo nikad ne skodi...",
		"Sta ces, mora se!",
		"E, daj jos jedno!",
	},
	"rakija": {
		"Rakija lije, ekipa navija!",
		"Jedan za zivce!",
		"Konobar: 'E to be brate!'",
		"Domaca sljivovica, nema greske!",
	},
	"vinjak": {
		"Vinjak za pravo drustvo!",
		"Konobar: 'Za gospodina vinjak!'",
		"Klasa se prepoznaje...",
	},
	"mineralna": {
		"Ekipa: 'Sta si picka...'",
		"Konobar pogledom sudi.",
		"Mineralna u kafani? Stvarno?",
		"Sramota za celu kafanu.",
	},
	"cevapi": {
		"Deset u lepinji sa svim!",
		"Spas za stomak!",
		"Cevapi resavaju sve probleme.",
	},
	"kajmak_luk": {
		"Kajmak i luk, klasika!",
		"Jedes kao da nema sutra.",
		"Kajmak se topi, mmm...",
	},
	"kikiriki": {
		"Grize kikiriki, gleda u daljinu...",
		"Bar nesto u stomak.",
		"Kikiriki gang!",
	},
	"ajvar_ljuti": {
		"LJUTI! Celo lice crveno!",
		"Ekipa navija: 'Ajde, ajde!'",
		"Ajvar przi, ali daje respect!",
	},
	"pevaj": {
		"Uzima mikrofon... publika drzi dah!",
		"Staje na sto i krece da peva!",
		"Konobar: 'Samo nemoj onu...'",
	},
	"kafetin": {
		"Brza pomoc za glavu!",
		"Konobar: 'Opet kafetin?'",
		"Farmaceutska pomoc stigla!",
	},
	"povracaj": {
		"Istrci napolje... zvuci se cuju do ulice.",
		"Konobar: 'Ne na pod!!!'",
		"Reset sistema, ali po cenu reputacije.",
	},
}

// AvailableAction is a catalog entry annotated for one player's wallet.
type AvailableAction struct {
	Action
	Affordable bool `json:"affordable"`
}

// AvailableActions lists the whole catalog, marking what s can pay for.
// Unaffordable actions stay listed.
func AvailableActions(s PlayerState) []AvailableAction {
	out := make([]AvailableAction, len(Catalog))
	for i, a := range Catalog {
		out[i] = AvailableAction{Action: a, Affordable: a.Cost <= s.Novcanik}
	}
	return out
}
