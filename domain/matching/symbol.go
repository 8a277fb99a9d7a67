package matching

// Symbol identifies one tradable instrument.
type Symbol struct {
	ID   uint32
	Name string
}

// NewSymbol creates a symbol with the given id and name.
func NewSymbol(id uint32, name string) Symbol {
	return Symbol{ID: id, Name: name}
}
