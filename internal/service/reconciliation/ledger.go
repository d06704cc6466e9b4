package reconciliation

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mamadbah2/bakery/internal/domain/models"
)

// LedgerEntry is the running stock of one product across one day.
// Closing = Opening + Produced - Sold, floored at zero; Shortfall records
// how many units were sold beyond what the ledger could account for.
type LedgerEntry struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Unknown     bool      `json:"unknown"`
	Opening     int       `json:"opening"`
	Produced    int       `json:"produced"`
	Sold        int       `json:"sold"`
	Closing     int       `json:"closing"`
	Shortfall   int       `json:"shortfall,omitempty"`
}

// LedgerDay is the ledger snapshot at the end of a day.
type LedgerDay struct {
	Day     models.DayKey `json:"day"`
	Label   string        `json:"label"`
	Entries []LedgerEntry `json:"entries"`
}

type movement struct {
	produced int
	sold     int
}

// BuildLedger replays the event logs day by day, carrying unsold stock
// forward. Opening stock of the first day in the window is zero, so the
// window should start before the period of interest. Days are returned most
// recent first, like Aggregate.
func BuildLedger(in Input, loc *time.Location) []LedgerDay {
	if loc == nil {
		loc = time.UTC
	}
	catalog := NewCatalog(in.Products)

	moves := make(map[models.DayKey]map[uuid.UUID]*movement)
	touch := func(t time.Time, id uuid.UUID) *movement {
		key := models.DayKeyOf(t, loc)
		day, ok := moves[key]
		if !ok {
			day = make(map[uuid.UUID]*movement)
			moves[key] = day
		}
		m, ok := day[id]
		if !ok {
			m = &movement{}
			day[id] = m
		}
		return m
	}

	for _, ev := range in.Production {
		touch(ev.CreatedAt, ev.ProductID).produced += ev.Quantity
	}
	for _, ev := range in.Sales {
		touch(ev.CreatedAt, ev.ProductID).sold += ev.Quantity
	}

	keys := make([]models.DayKey, 0, len(moves))
	for k := range moves {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	stock := make(map[uuid.UUID]int)
	out := make([]LedgerDay, 0, len(keys))

	for _, key := range keys {
		ids := make(map[uuid.UUID]struct{})
		for id := range moves[key] {
			ids[id] = struct{}{}
		}
		for id, qty := range stock {
			if qty > 0 {
				ids[id] = struct{}{}
			}
		}

		day := LedgerDay{Day: key, Label: key.Label(loc)}
		for id := range ids {
			m := moves[key][id]
			if m == nil {
				m = &movement{}
			}
			product, known := catalog.Resolve(id)
			entry := LedgerEntry{
				ProductID:   id,
				ProductName: product.Name,
				Unknown:     !known,
				Opening:     stock[id],
				Produced:    m.produced,
				Sold:        m.sold,
			}
			available := entry.Opening + entry.Produced
			if entry.Sold > available {
				entry.Shortfall = entry.Sold - available
			}
			entry.Closing = max(0, available-entry.Sold)
			stock[id] = entry.Closing
			day.Entries = append(day.Entries, entry)
		}

		sort.Slice(day.Entries, func(i, j int) bool {
			a, b := day.Entries[i], day.Entries[j]
			if a.ProductName != b.ProductName {
				return a.ProductName < b.ProductName
			}
			return a.ProductID.String() < b.ProductID.String()
		})
		out = append(out, day)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
