package collect

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrInvalidQuery is returned when a request does not carry a valid pair.
var ErrInvalidQuery = errors.New("invalid query")

// Result is the envelope every collector endpoint answers with.
type Result struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
	Data    any    `json:"data"`
}

// set fills every field of the result.
func (r *Result) set(code int, msg string, data any) {
	r.Code = code
	r.Message = msg
	r.Data = data
}

// HandlerFuncResError is a gin handler that returns its result instead of
// writing it.
type HandlerFuncResError func(*gin.Context) (Result, error)

// GinHandler writes the result of h as JSON. Invalid queries answer 400,
// any other error answers 500 with the error message.
func GinHandler(h HandlerFuncResError) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := h(c)
		switch {
		case errors.Is(err, ErrInvalidQuery):
			res.set(http.StatusBadRequest, err.Error(), nil)
			c.AbortWithStatusJSON(http.StatusBadRequest, res)
		case err != nil:
			res.set(http.StatusInternalServerError, err.Error(), nil)
			c.AbortWithStatusJSON(http.StatusInternalServerError, res)
		default:
			c.JSON(http.StatusOK, res)
		}
	}
}

// CollectQuery is the pair (and interval) a request operates on. It binds
// from the query string, a form body or a JSON body. Both symbols must be
// known to the registry's [Symbols].
type CollectQuery struct {
	From     string `json:"fsym" form:"fsym" binding:"required" validate:"symbol"`
	To       string `json:"tsym" form:"tsym" binding:"required" validate:"symbol"`
	Interval int64  `json:"interval" form:"interval,default=60"`
}

func bindQuery(c *gin.Context, symbols *Symbols) (CollectQuery, error) {
	var q CollectQuery
	if err := c.ShouldBind(&q); err != nil {
		return q, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	if err := symbols.Validate(&q); err != nil {
		return q, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	return q, nil
}

// SymbolQuery names a symbol and, when adding or updating, its sign.
type SymbolQuery struct {
	Symbol  string `json:"symbol" form:"symbol" binding:"required"`
	Unicode string `json:"unicode" form:"unicode"`
}

func bindSymbol(c *gin.Context, needSign bool) (SymbolQuery, error) {
	var q SymbolQuery
	if err := c.ShouldBind(&q); err != nil {
		return q, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	if needSign && q.Unicode == "" {
		return q, fmt.Errorf("%w: unicode is required", ErrInvalidQuery)
	}
	return q, nil
}

// AddTask starts collecting a pair with the REST puller.
func AddTask(reg *Registry) HandlerFuncResError {
	return func(c *gin.Context) (r Result, err error) {
		q, err := bindQuery(c, reg.Symbols())
		if err != nil {
			return r, err
		}
		if t, ok := reg.Task(q.From, q.To); ok {
			r.set(http.StatusOK, "Data for this pair is already being collected", t)
			return r, nil
		}
		t, _ := reg.AddTask(q.From, q.To, q.Interval)
		r.set(http.StatusCreated, "Data collection started", t)
		return r, nil
	}
}

// RemoveTask stops collecting a pair with the REST puller.
func RemoveTask(reg *Registry) HandlerFuncResError {
	return func(c *gin.Context) (r Result, err error) {
		q, err := bindQuery(c, reg.Symbols())
		if err != nil {
			return r, err
		}
		if !reg.RemoveTask(q.From, q.To) {
			r.set(http.StatusOK, "No data is collected for this pair", nil)
			return r, nil
		}
		r.set(http.StatusOK, "Task stopped successfully", nil)
		return r, nil
	}
}

// UpdateTask changes the pull interval of a running task.
func UpdateTask(reg *Registry) HandlerFuncResError {
	return func(c *gin.Context) (r Result, err error) {
		q, err := bindQuery(c, reg.Symbols())
		if err != nil {
			return r, err
		}
		t, ok := reg.UpdateTask(q.From, q.To, q.Interval)
		if !ok {
			r.set(http.StatusOK, "No data is collected for this pair", nil)
			return r, nil
		}
		r.set(http.StatusOK, "Task updated successfully", t)
		return r, nil
	}
}

// Status reports every running task and subscription. Data is null when
// nothing is collected.
func Status(reg *Registry) HandlerFuncResError {
	return func(c *gin.Context) (r Result, err error) {
		r.set(http.StatusOK, "Information about running tasks", nil)
		if status := reg.Status(); status != nil {
			r.Data = status
		}
		return r, nil
	}
}

// Subscribe starts collecting a pair over the streaming client.
func Subscribe(reg *Registry) HandlerFuncResError {
	return func(c *gin.Context) (r Result, err error) {
		q, err := bindQuery(c, reg.Symbols())
		if err != nil {
			return r, err
		}
		s, err := reg.Subscribe(q.From, q.To)
		if err != nil {
			r.set(http.StatusOK, "subscribe error: "+err.Error(), nil)
			return r, nil
		}
		r.set(http.StatusCreated, "Subscribed successfully, data collection started", []string{s.From, s.To})
		return r, nil
	}
}

// Unsubscribe stops collecting a pair over the streaming client.
func Unsubscribe(reg *Registry) HandlerFuncResError {
	return func(c *gin.Context) (r Result, err error) {
		q, err := bindQuery(c, reg.Symbols())
		if err != nil {
			return r, err
		}
		if err := reg.Unsubscribe(q.From, q.To); err != nil {
			r.set(http.StatusOK, "unsubscribe error: "+err.Error(), nil)
			return r, nil
		}
		r.set(http.StatusOK, "Unsubscribed successfully, data collection stopped", []string{normalize(q.From), normalize(q.To)})
		return r, nil
	}
}

// ListSymbols reports every symbol requests may name.
func ListSymbols(symbols *Symbols) HandlerFuncResError {
	return func(c *gin.Context) (r Result, err error) {
		r.set(http.StatusOK, "Known symbols", symbols.List())
		return r, nil
	}
}

// AddSymbol makes a new symbol available to collection requests.
func AddSymbol(symbols *Symbols) HandlerFuncResError {
	return func(c *gin.Context) (r Result, err error) {
		q, err := bindSymbol(c, true)
		if err != nil {
			return r, err
		}
		s, err := symbols.Add(q.Symbol, q.Unicode)
		if err != nil {
			return r, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		}
		r.set(http.StatusCreated, fmt.Sprintf("symbol %s successfully added", s.Symbol), s)
		return r, nil
	}
}

// UpdateSymbol changes the sign of a known symbol.
func UpdateSymbol(symbols *Symbols) HandlerFuncResError {
	return func(c *gin.Context) (r Result, err error) {
		q, err := bindSymbol(c, true)
		if err != nil {
			return r, err
		}
		s, err := symbols.Update(q.Symbol, q.Unicode)
		if err != nil {
			return r, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		}
		r.set(http.StatusOK, fmt.Sprintf("symbol %s successfully updated", s.Symbol), s)
		return r, nil
	}
}

// RemoveSymbol stops accepting a symbol in collection requests.
func RemoveSymbol(symbols *Symbols) HandlerFuncResError {
	return func(c *gin.Context) (r Result, err error) {
		q, err := bindSymbol(c, false)
		if err != nil {
			return r, err
		}
		if err := symbols.Remove(q.Symbol); err != nil {
			return r, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		}
		r.set(http.StatusOK, fmt.Sprintf("symbol %s successfully removed", normalize(q.Symbol)), nil)
		return r, nil
	}
}
