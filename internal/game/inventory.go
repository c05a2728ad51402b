package game

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/astral-district/internal/balance"
	"github.com/talgya/astral-district/internal/catalog"
	"github.com/talgya/astral-district/internal/player"
)

// AddItemToInventory grants qty units. Unknown items are refused.
func (s *Service) AddItemToInventory(itemID string, qty int) bool {
	return s.mutate("inventory", func(st *player.State) (bool, string) {
		it, ok := s.cat.Item(itemID)
		if !ok || qty < 1 {
			return false, ""
		}
		addItem(st, it, qty, s.clk.Now())
		return true, ""
	})
}

// RemoveItemFromInventory takes qty units away, unequipped units first.
func (s *Service) RemoveItemFromInventory(itemID string, qty int) bool {
	return s.mutate("inventory", func(st *player.State) (bool, string) {
		if qty < 1 || st.Quantity(itemID) < qty {
			return false, ""
		}
		removeUnits(st, itemID, qty)
		return true, ""
	})
}

// EquipItem equips an owned weapon or armor, displacing whatever holds
// the same slot.
func (s *Service) EquipItem(itemID string) bool {
	return s.mutate("equipment", func(st *player.State) (bool, string) {
		it, ok := s.cat.Item(itemID)
		if !ok || !it.Equippable() {
			return false, ""
		}
		target := -1
		for i, e := range st.Inventory {
			if e.ItemID != itemID {
				continue
			}
			if e.Equipped {
				return false, ""
			}
			if target < 0 {
				target = i
			}
		}
		if target < 0 {
			return false, ""
		}
		for i, e := range st.Inventory {
			if !e.Equipped {
				continue
			}
			if other, ok := s.cat.Item(e.ItemID); ok && other.Slot == it.Slot {
				st.Inventory[i].Equipped = false
			}
		}
		st.Inventory[target].Equipped = true
		return true, fmt.Sprintf("%s equipped %s", st.Name, it.Name)
	})
}

// UnequipItem takes an equipped item off.
func (s *Service) UnequipItem(itemID string) bool {
	return s.mutate("equipment", func(st *player.State) (bool, string) {
		for i, e := range st.Inventory {
			if e.ItemID == itemID && e.Equipped {
				st.Inventory[i].Equipped = false
				return true, ""
			}
		}
		return false, ""
	})
}

// UseItem consumes one unit of a usable item and applies its effect.
func (s *Service) UseItem(itemID string) bool {
	return s.mutate("inventory", func(st *player.State) (bool, string) {
		it, ok := s.cat.Item(itemID)
		if !ok || !it.Usable || st.Quantity(itemID) < 1 {
			return false, ""
		}
		applyEffect(st, it.Effect)
		removeUnits(st, itemID, 1)
		return true, fmt.Sprintf("%s used %s", st.Name, it.Name)
	})
}

// SellItem sells one unequipped unit for a share of its market value and
// returns the price paid.
func (s *Service) SellItem(itemID string) (int, bool) {
	price := 0
	ok := s.mutate("market", func(st *player.State) (bool, string) {
		it, ok := s.cat.Item(itemID)
		if !ok || !it.Tradeable || !st.Confinement.Free() {
			return false, ""
		}
		if !removeUnequipped(st, itemID) {
			return false, ""
		}
		price = catalog.SellPrice(it)
		st.Money += price
		return true, fmt.Sprintf("%s sold %s for %s", st.Name, it.Name, money(price))
	})
	return price, ok
}

func applyEffect(st *player.State, e catalog.Effect) {
	if e.Health > 0 {
		st.Health = min(st.Health+e.Health, st.MaxHealth)
	}
	if e.Energy > 0 {
		st.Energy = min(st.Energy+e.Energy, st.MaxEnergy)
	}
	if e.HeartRate > 0 {
		st.HeartRate = max(st.HeartRate-e.HeartRate, balance.HeartRateFloor)
	}
}

// addItem merges stackable items into one entry and gives every unit of a
// non-stackable item its own entry.
func addItem(st *player.State, it catalog.Item, qty int, now time.Time) {
	if it.Stackable {
		for i, e := range st.Inventory {
			if e.ItemID == it.ID {
				st.Inventory[i].Quantity += qty
				return
			}
		}
		st.Inventory = append(st.Inventory, player.InventoryEntry{ItemID: it.ID, Quantity: qty, AcquiredAt: now})
		return
	}
	for range qty {
		st.Inventory = append(st.Inventory, player.InventoryEntry{ItemID: it.ID, Quantity: 1, AcquiredAt: now})
	}
}

// removeUnits assumes the player holds at least qty units.
func removeUnits(st *player.State, itemID string, qty int) {
	for _, equipped := range []bool{false, true} {
		for i := len(st.Inventory) - 1; i >= 0 && qty > 0; i-- {
			e := &st.Inventory[i]
			if e.ItemID != itemID || e.Equipped != equipped {
				continue
			}
			take := min(e.Quantity, qty)
			e.Quantity -= take
			qty -= take
		}
	}
	if qty > 0 {
		slog.Error("inventory underflow", "item", itemID, "missing", qty)
	}
	pruneInventory(st)
}

func removeUnequipped(st *player.State, itemID string) bool {
	for i := len(st.Inventory) - 1; i >= 0; i-- {
		e := &st.Inventory[i]
		if e.ItemID == itemID && !e.Equipped && e.Quantity > 0 {
			e.Quantity--
			pruneInventory(st)
			return true
		}
	}
	return false
}

func pruneInventory(st *player.State) {
	kept := st.Inventory[:0]
	for _, e := range st.Inventory {
		if e.Quantity > 0 {
			kept = append(kept, e)
		}
	}
	st.Inventory = kept
}
