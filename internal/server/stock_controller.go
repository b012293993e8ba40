package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dyike/StockSync/internal/service"
)

type StockController struct {
	stocks StockService
	now    func() time.Time
}

type ControllerOption func(*StockController)

// WithNow sets the clock used for the default date.
func WithNow(now func() time.Time) ControllerOption {
	return func(ctrl *StockController) {
		ctrl.now = now
	}
}

func NewStockController(stocks StockService, opts ...ControllerOption) *StockController {
	ctrl := &StockController{stocks: stocks, now: time.Now}
	for _, opt := range opts {
		opt(ctrl)
	}
	return ctrl
}

func (ctrl *StockController) RegisterRoutes(router *gin.RouterGroup) {
	stockGroup := router.Group("/stock")
	{
		stockGroup.GET("/:symbol", ctrl.getStock)
		stockGroup.GET("/:symbol/:date", ctrl.getStock)
		stockGroup.POST("/:symbol", ctrl.postStock)
	}
}

func (ctrl *StockController) getStock(c *gin.Context) {
	symbol := c.Param("symbol")
	date := c.Param("date")
	if date == "" {
		date = service.DefaultDate(ctrl.now())
	}

	result, err := ctrl.stocks.Fetch(c.Request.Context(), symbol, date)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (ctrl *StockController) postStock(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		writeError(c, err)
		return
	}
	var payload map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil || payload == nil {
		badRequest(c, "Request body must be JSON.")
		return
	}

	symbol := strings.TrimSpace(c.Param("symbol"))
	if err := service.ValidateSymbol(symbol); err != nil {
		writeError(c, err)
		return
	}

	amount, msg := parseAmount(payload["amount"])
	if msg != "" {
		badRequest(c, msg)
		return
	}

	holding, err := ctrl.stocks.AdjustQuantity(c.Request.Context(), symbol, amount)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":          fmt.Sprintf("%d units of stock %s were added to your stock record", amount, holding.CompanyCode),
		"company_code":     holding.CompanyCode,
		"purchased_amount": holding.PurchasedAmount,
	})
}

// parseAmount returns the whole-number amount, or the client message
// describing why the value is unusable.
func parseAmount(raw any) (int64, string) {
	switch v := raw.(type) {
	case nil:
		return 0, "Amount is required."
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, ""
		}
		f, err := v.Float64()
		if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) || math.Abs(f) >= math.MaxInt64 {
			return 0, fmt.Sprintf("Amount must be a whole number. You sent: %s", v.String())
		}
		return int64(f), ""
	default:
		return 0, fmt.Sprintf("Amount must be a number. You sent: %v (%s)", v, jsonTypeName(v))
	}
}

func jsonTypeName(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func writeError(c *gin.Context, err error) {
	if service.IsValidation(err) {
		badRequest(c, err.Error())
		return
	}
	log.Error().Err(err).
		Str("request_id", c.GetString(requestIDKey)).
		Str("path", c.Request.URL.Path).
		Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": internalErrorMessage})
}
