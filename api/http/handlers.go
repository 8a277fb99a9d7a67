// Package http exposes the engine over REST and websocket endpoints.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"helix/domain/matching"
	"helix/service"
)

type Server struct {
	svc  *service.MarketService
	feed *Feed
	log  *zap.Logger
}

func NewServer(svc *service.MarketService, feed *Feed, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{svc: svc, feed: feed, log: log}
}

type symbolRequest struct {
	ID   uint32 `json:"id"`
	Name string `json:"name"`
}

type orderRequest struct {
	ID               uint64 `json:"id"`
	SymbolID         uint32 `json:"symbol_id"`
	Side             string `json:"side"`
	Type             string `json:"type"`
	TIF              string `json:"tif"`
	Price            uint64 `json:"price"`
	StopPrice        uint64 `json:"stop_price"`
	TrailingDistance uint64 `json:"trailing_distance"`
	TrailingStep     uint64 `json:"trailing_step"`
	Quantity         uint64 `json:"quantity"`
}

type modifyRequest struct {
	Price    uint64 `json:"price"`
	Quantity uint64 `json:"quantity"`
	Mitigate bool   `json:"mitigate"`
}

type reduceRequest struct {
	Quantity uint64 `json:"quantity"`
}

type okResponse struct {
	Status string `json:"status"`
}

var statusOK = okResponse{Status: "ok"}

func (s *Server) createSymbol(w http.ResponseWriter, r *http.Request) {
	var req symbolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid symbol"})
		return
	}
	if err := s.svc.AddSymbol(req.ID, req.Name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, statusOK)
}

func (s *Server) deleteSymbol(w http.ResponseWriter, r *http.Request) {
	id, ok := symbolID(w, r)
	if !ok {
		return
	}
	if err := s.svc.DeleteSymbol(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusOK)
}

func (s *Server) createBook(w http.ResponseWriter, r *http.Request) {
	id, ok := symbolID(w, r)
	if !ok {
		return
	}
	if err := s.svc.AddOrderBook(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, statusOK)
}

func (s *Server) deleteBook(w http.ResponseWriter, r *http.Request) {
	id, ok := symbolID(w, r)
	if !ok {
		return
	}
	if err := s.svc.DeleteOrderBook(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusOK)
}

func (s *Server) listSymbols(w http.ResponseWriter, _ *http.Request) {
	type entry struct {
		ID   uint32 `json:"id"`
		Name string `json:"name"`
	}
	out := []entry{}
	for _, sym := range s.svc.Symbols() {
		out = append(out, entry{ID: sym.ID, Name: sym.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}

	side, err := parseSide(req.Side)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	typ, err := parseType(req.Type)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	tif, err := parseTIF(req.TIF, typ)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	err = s.svc.PlaceOrder(service.OrderRequest{
		ID:               req.ID,
		SymbolID:         req.SymbolID,
		Side:             side,
		Type:             typ,
		TIF:              tif,
		Price:            req.Price,
		StopPrice:        req.StopPrice,
		TrailingDistance: req.TrailingDistance,
		TrailingStep:     req.TrailingStep,
		Quantity:         req.Quantity,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, statusOK)
}

func (s *Server) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	if err := s.svc.CancelOrder(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusOK)
}

func (s *Server) reduceOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	var req reduceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}
	if err := s.svc.ReduceOrder(id, req.Quantity); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusOK)
}

func (s *Server) modifyOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	var req modifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}
	if err := s.svc.ModifyOrder(id, req.Price, req.Quantity, req.Mitigate); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusOK)
}

func (s *Server) replaceOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	var req modifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}
	if err := s.svc.ReplaceOrder(id, req.Price, req.Quantity); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusOK)
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	symID, ok := symbolID(w, r)
	if !ok {
		return
	}
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	st, err := s.svc.Order(symID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type depthLevel struct {
	Price  uint64 `json:"price"`
	Volume uint64 `json:"volume"`
	Orders int    `json:"orders"`
}

type depthResponse struct {
	Symbol    string       `json:"symbol"`
	SymbolID  uint32       `json:"symbol_id"`
	LastPrice uint64       `json:"last_price"`
	Bids      []depthLevel `json:"bids"`
	Asks      []depthLevel `json:"asks"`
}

func (s *Server) getDepth(w http.ResponseWriter, r *http.Request) {
	id, ok := symbolID(w, r)
	if !ok {
		return
	}

	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})
			return
		}
		limit = n
	}

	d, err := s.svc.Depth(id, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := depthResponse{
		Symbol:    d.Symbol.Name,
		SymbolID:  d.Symbol.ID,
		LastPrice: d.LastPrice,
		Bids:      []depthLevel{},
		Asks:      []depthLevel{},
	}
	for _, lvl := range d.Bids {
		resp.Bids = append(resp.Bids, depthLevel{Price: lvl.Price, Volume: lvl.Volume, Orders: lvl.Orders})
	}
	for _, lvl := range d.Asks {
		resp.Asks = append(resp.Asks, depthLevel{Price: lvl.Price, Volume: lvl.Volume, Orders: lvl.Orders})
	}
	writeJSON(w, http.StatusOK, resp)
}

// ----- parsing helpers -----

func symbolID(w http.ResponseWriter, r *http.Request) (uint32, bool) {
	raw := chi.URLParam(r, "symbol_id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid symbol id"})
		return 0, false
	}
	return uint32(id), true
}

func orderID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := chi.URLParam(r, "order_id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid order id"})
		return 0, false
	}
	return id, true
}

func parseSide(s string) (matching.Side, error) {
	switch strings.ToUpper(s) {
	case "BUY", "BID":
		return matching.Buy, nil
	case "SELL", "ASK":
		return matching.Sell, nil
	default:
		return 0, errors.New("side must be BUY or SELL")
	}
}

func parseType(s string) (matching.OrderType, error) {
	switch strings.ToUpper(s) {
	case "MARKET":
		return matching.Market, nil
	case "LIMIT", "":
		return matching.Limit, nil
	case "STOP":
		return matching.Stop, nil
	case "STOP_LIMIT":
		return matching.StopLimit, nil
	case "TRAILING_STOP":
		return matching.TrailingStop, nil
	case "TRAILING_STOP_LIMIT":
		return matching.TrailingStopLimit, nil
	default:
		return 0, errors.New("unknown order type")
	}
}

func parseTIF(s string, typ matching.OrderType) (matching.TimeInForce, error) {
	switch strings.ToUpper(s) {
	case "GTC":
		return matching.GTC, nil
	case "IOC":
		return matching.IOC, nil
	case "FOK":
		return matching.FOK, nil
	case "AON":
		return matching.AON, nil
	case "":
		if typ == matching.Market {
			return matching.IOC, nil
		}
		return matching.GTC, nil
	default:
		return 0, errors.New("unknown time in force")
	}
}
