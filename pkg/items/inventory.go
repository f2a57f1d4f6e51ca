package items

// Item is one inventory slot.
type Item struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	DisplayKey string `json:"display_key,omitempty"`
}

// Inventory is the player's in-memory inventory, in pickup order.
type Inventory struct {
	items []*Item
}

// NewInventory creates an empty inventory.
func NewInventory() *Inventory {
	return &Inventory{}
}

func (inv *Inventory) find(id string) (int, *Item) {
	for i, it := range inv.items {
		if it.ID == id {
			return i, it
		}
	}
	return -1, nil
}

// AddItem adds an item, or tops up the quantity of one already held.
func (inv *Inventory) AddItem(id, name string, quantity int, displayKey string) {
	if _, it := inv.find(id); it != nil {
		it.Quantity += quantity
		if displayKey != "" {
			it.DisplayKey = displayKey
		}
		return
	}
	inv.items = append(inv.items, &Item{ID: id, Name: name, Quantity: quantity, DisplayKey: displayKey})
}

// RemoveItem drops an item. Removing an item that is not held is a no-op.
func (inv *Inventory) RemoveItem(id string) {
	i, it := inv.find(id)
	if it == nil {
		return
	}
	inv.items = append(inv.items[:i], inv.items[i+1:]...)
}

// UpdateItemDisplay changes the art key shown for an item.
func (inv *Inventory) UpdateItemDisplay(id, displayKey string) {
	if _, it := inv.find(id); it != nil {
		it.DisplayKey = displayKey
	}
}

// Quantity returns how many of an item are held, zero if none.
func (inv *Inventory) Quantity(id string) int {
	if _, it := inv.find(id); it != nil {
		return it.Quantity
	}
	return 0
}

// Has reports whether the item is held.
func (inv *Inventory) Has(id string) bool {
	_, it := inv.find(id)
	return it != nil
}

// Decrement lowers the quantity by one, not below zero, and returns the new quantity.
func (inv *Inventory) Decrement(id string) int {
	_, it := inv.find(id)
	if it == nil {
		return 0
	}
	if it.Quantity > 0 {
		it.Quantity--
	}
	return it.Quantity
}

// Items returns a copy of the held items.
func (inv *Inventory) Items() []Item {
	out := make([]Item, len(inv.items))
	for i, it := range inv.items {
		out[i] = *it
	}
	return out
}

// Clear empties the inventory.
func (inv *Inventory) Clear() {
	inv.items = nil
}
