package domain

// Location описывает точку продаж, о которой оставляют отзыв.
type Location struct {
	ID    string
	Label string
}

// UnknownLocationID сохраняется, если пользователь не выбрал локацию.
const UnknownLocationID = "unknown"

// UnknownLocationLabel отображается вместо неизвестной локации.
const UnknownLocationLabel = "Невідома локація"

var locations = []Location{
	{ID: "location1", Label: "📍 ЖК Славутич"},
	{ID: "location2", Label: "📍 вул. Анни Ахматової, 31"},
	{ID: "location3", Label: "📍 вул. Лариси Руденко 15/14"},
}

// Locations возвращает список локаций в порядке показа.
func Locations() []Location {
	out := make([]Location, len(locations))
	copy(out, locations)
	return out
}

// LookupLocation ищет локацию по идентификатору.
// Идентификатор сравнивается точно, без нормализации.
func LookupLocation(id string) (Location, bool) {
	for _, loc := range locations {
		if loc.ID == id {
			return loc, true
		}
	}
	return Location{}, false
}

// LocationLabel возвращает подпись локации или заглушку для неизвестной.
func LocationLabel(id string) string {
	if loc, ok := LookupLocation(id); ok {
		return loc.Label
	}
	return UnknownLocationLabel
}
