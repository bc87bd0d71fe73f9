package collect

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrSymbolExists is returned when adding a symbol that is already known.
	ErrSymbolExists = errors.New("symbol already exists")

	// ErrUnknownSymbol is returned when updating or removing a symbol that
	// is not known.
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrMalformedSymbol is returned when a symbol fails [ValidSymbol].
	ErrMalformedSymbol = errors.New("malformed symbol")
)

// Symbol is a currency the collector accepts, with the sign shown for it.
type Symbol struct {
	Symbol  string `json:"symbol"`
	Unicode string `json:"unicode"`
}

// DefaultSymbols returns the currencies a collector knows when none are
// configured.
func DefaultSymbols() map[string]string {
	return map[string]string{
		"BTC":  "₿",
		"ETH":  "Ξ",
		"XRP":  "✕",
		"ADA":  "₳",
		"LTC":  "Ł",
		"DOT":  "●",
		"DOGE": "Ð",
		"SOL":  "◎",
		"USDT": "₮",
		"USD":  "$",
		"EUR":  "€",
		"GBP":  "£",
		"JPY":  "¥",
		"CNY":  "元",
		"RUB":  "₽",
	}
}

// Symbols is the set of currencies requests may name. It owns the
// validator that checks the "symbol" rule against that set.
type Symbols struct {
	mu       sync.RWMutex
	known    map[string]string
	validate *validator.Validate
}

// NewSymbols creates a symbol set seeded with seed, a map from symbol to
// its sign. Symbols are stored upper case.
func NewSymbols(seed map[string]string) (*Symbols, error) {
	s := &Symbols{known: make(map[string]string, len(seed))}
	for sym, sign := range seed {
		if !ValidSymbol(sym) {
			return nil, fmt.Errorf("%w: %q", ErrMalformedSymbol, sym)
		}
		s.known[normalize(sym)] = sign
	}

	s.validate = validator.New()
	if err := s.validate.RegisterValidation("symbol", s.symbolValid); err != nil {
		return nil, fmt.Errorf("failed to register symbol rule: %w", err)
	}
	return s, nil
}

func (s *Symbols) symbolValid(fl validator.FieldLevel) bool {
	return s.IsPresent(fl.Field().String())
}

// IsPresent reports whether sym is known, ignoring case.
func (s *Symbols) IsPresent(sym string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.known[normalize(sym)]
	return ok
}

// Add registers a new symbol.
func (s *Symbols) Add(sym, sign string) (Symbol, error) {
	if !ValidSymbol(normalize(sym)) {
		return Symbol{}, fmt.Errorf("%w: %q", ErrMalformedSymbol, sym)
	}
	key := normalize(sym)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.known[key]; ok {
		return Symbol{}, fmt.Errorf("%w: %s", ErrSymbolExists, key)
	}
	s.known[key] = sign
	return Symbol{Symbol: key, Unicode: sign}, nil
}

// Update changes the sign of a known symbol.
func (s *Symbols) Update(sym, sign string) (Symbol, error) {
	key := normalize(sym)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.known[key]; !ok {
		return Symbol{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, key)
	}
	s.known[key] = sign
	return Symbol{Symbol: key, Unicode: sign}, nil
}

// Remove forgets a symbol. Jobs already running for it are left alone.
func (s *Symbols) Remove(sym string) error {
	key := normalize(sym)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.known[key]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSymbol, key)
	}
	delete(s.known, key)
	return nil
}

// List returns every known symbol, sorted.
func (s *Symbols) List() []Symbol {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Symbol, 0, len(s.known))
	for sym, sign := range s.known {
		out = append(out, Symbol{Symbol: sym, Unicode: sign})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Validate checks the "symbol" rules on v's fields.
func (s *Symbols) Validate(v any) error {
	return s.validate.Struct(v)
}
