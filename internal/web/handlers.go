package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/user/netdiag/internal/classify"
	"github.com/user/netdiag/internal/extract"
	"github.com/user/netdiag/internal/model"
	"github.com/user/netdiag/internal/prognosis"
	"github.com/user/netdiag/internal/report"
	"github.com/user/netdiag/internal/storage"
	"github.com/user/netdiag/internal/util"
)

const maxHistoryLimit = 500

// Handlers contains HTTP handlers.
type Handlers struct {
	records  prognosis.RecordSource
	analyzer *prognosis.Analyzer
	history  History
	tools    ToolLister
	config   *util.Config
}

// NewHandlers creates new handlers.
func NewHandlers(records prognosis.RecordSource, history History, tools ToolLister, cfg *util.Config) *Handlers {
	return &Handlers{
		records:  records,
		analyzer: prognosis.NewAnalyzer(records),
		history:  history,
		tools:    tools,
		config:   cfg,
	}
}

func (h *Handlers) register(r gin.IRouter) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.GET("/records", h.APIListRecords)
	api.GET("/records/:name", h.APIGetRecord)
	api.GET("/records/:name/path", h.APIRecordPath)
	api.GET("/prognosis", h.APIPrognosis)
	api.GET("/history", h.APIGetHistory)
	api.GET("/summary", h.APIGetSummary)
	api.GET("/rules", h.APIGetRules)
	api.GET("/tools", h.APIGetTools)
}

// APIListRecords lists stored records, newest first, optionally filtered by
// a title glob.
func (h *Handlers) APIListRecords(c *gin.Context) {
	infos, err := h.records.List(c.Query("pattern"))
	if err != nil {
		writeError(c, err, http.StatusBadRequest)
		return
	}
	if infos == nil {
		infos = []model.RecordInfo{}
	}
	c.JSON(http.StatusOK, infos)
}

// APIGetRecord returns one record and its prognosis.
func (h *Handlers) APIGetRecord(c *gin.Context) {
	name := c.Param("name")
	rec, err := h.records.Load(name)
	if err != nil {
		writeError(c, err, statusFor(err))
		return
	}

	p := prognosis.Analyze(rec.Output)
	p.Source = name
	c.JSON(http.StatusOK, gin.H{
		"name":      name,
		"title":     rec.Title,
		"timestamp": rec.Timestamp,
		"kind":      rec.Kind,
		"label":     rec.Label,
		"output":    rec.Output,
		"prognosis": p,
	})
}

// APIRecordPath renders the hops of a saved traceroute as a Mermaid diagram.
func (h *Handlers) APIRecordPath(c *gin.Context) {
	name := c.Param("name")
	rec, err := h.records.Load(name)
	if err != nil {
		writeError(c, err, statusFor(err))
		return
	}

	hops := extract.Traceroute(rec.Output)
	if len(hops) == 0 {
		writeError(c, errors.New("record has no traceroute hops"), http.StatusUnprocessableEntity)
		return
	}

	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, hops)
		return
	}
	c.String(http.StatusOK, report.HopDiagram(rec.Title, hops))
}

// APIPrognosis analyzes the newest record, or the one named by ?name=.
func (h *Handlers) APIPrognosis(c *gin.Context) {
	var (
		p   prognosis.Prognosis
		err error
	)
	if name := c.Query("name"); name != "" {
		p, err = h.analyzer.AnalyzeRecord(name)
	} else {
		p, err = h.analyzer.AnalyzeLatest()
	}
	if err != nil {
		writeError(c, err, statusFor(err))
		return
	}
	c.JSON(http.StatusOK, p)
}

// APIGetHistory returns indexed history rows.
func (h *Handlers) APIGetHistory(c *gin.Context) {
	if h.history == nil {
		writeError(c, errors.New("history index unavailable"), http.StatusServiceUnavailable)
		return
	}

	limit := h.config.HistoryLimit
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= maxHistoryLimit {
			limit = n
		}
	}

	entries, err := h.history.Recent(limit, model.ProbeKind(c.Query("kind")))
	if err != nil {
		writeError(c, err, http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []model.HistoryEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

// APIGetSummary counts labels over a window, 7 days unless ?since= is a
// duration.
func (h *Handlers) APIGetSummary(c *gin.Context) {
	if h.history == nil {
		writeError(c, errors.New("history index unavailable"), http.StatusServiceUnavailable)
		return
	}

	window := 7 * 24 * time.Hour
	if s := c.Query("since"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			writeError(c, err, http.StatusBadRequest)
			return
		}
		window = d
	}

	counts, err := h.history.LabelCounts(time.Now().Add(-window))
	if err != nil {
		writeError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"since": window.String(), "counts": counts})
}

// APIGetRules returns the classification tables.
func (h *Handlers) APIGetRules(c *gin.Context) {
	out := make(map[classify.Family]classify.Table)
	for _, f := range classify.Families() {
		if t, ok := classify.TableFor(f); ok {
			out[f] = t
		}
	}
	c.JSON(http.StatusOK, out)
}

// APIGetTools returns the external tool inventory.
func (h *Handlers) APIGetTools(c *gin.Context) {
	if h.tools == nil {
		writeError(c, errors.New("tool inventory unavailable"), http.StatusServiceUnavailable)
		return
	}
	c.JSON(http.StatusOK, h.tools.Tools())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, prognosis.ErrNoRecords):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error, status int) {
	c.JSON(status, gin.H{"error": err.Error()})
}
