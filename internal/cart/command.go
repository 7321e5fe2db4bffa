package cart

import "github.com/fjod/go_cart/cart-engine/internal/domain"

// Command is one of AddItem, UpdateQty, RemoveItem or Clear.
type Command interface {
	isCommand()
	Name() string
}

type AddItem struct {
	Item domain.LineItemInput
}

// UpdateQty sets the quantity of an existing line. Qty <= 0 removes the line.
type UpdateQty struct {
	ProductID domain.ProductID
	Qty       int
}

type RemoveItem struct {
	ProductID domain.ProductID
}

type Clear struct{}

func (AddItem) isCommand()    {}
func (UpdateQty) isCommand()  {}
func (RemoveItem) isCommand() {}
func (Clear) isCommand()      {}

func (AddItem) Name() string    { return "ADD" }
func (UpdateQty) Name() string  { return "UPDATE_QTY" }
func (RemoveItem) Name() string { return "REMOVE" }
func (Clear) Name() string      { return "CLEAR" }
