package server

import (
	"encoding/json"
	"net/http"

	"github.com/invopop/jsonschema"
	"go.uber.org/zap"

	"blitz/logging"
)

// Admin 管理接口：参数热更新、参数 schema、运行指标
type Admin struct {
	tuning  *TuningStore
	metrics *Metrics
	log     *zap.SugaredLogger
}

func NewAdmin(tuning *TuningStore, metrics *Metrics, log *zap.SugaredLogger) *Admin {
	return &Admin{tuning: tuning, metrics: metrics, log: logging.Or(log)}
}

// Routes 注册全部管理路由
func (a *Admin) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/admin/config", a.HandleConfig)
	mux.HandleFunc("/admin/config/schema", a.HandleSchema)
	mux.HandleFunc("/metrics", a.HandleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
}

// tuningPatch 部分更新：只覆盖请求中出现的字段
type tuningPatch struct {
	TicksPerSecond       *int     `json:"ticksPerSecond,omitempty"`
	MaxCatchupTicks      *int     `json:"maxCatchupTicks,omitempty"`
	PlayerSpeed          *float32 `json:"playerSpeed,omitempty"`
	ProjectileSpeed      *float32 `json:"projectileSpeed,omitempty"`
	ProjectileLifetimeMs *int     `json:"projectileLifetimeMs,omitempty"`
	PlayerWidth          *float32 `json:"playerWidth,omitempty"`
	PlayerHeight         *float32 `json:"playerHeight,omitempty"`
	ProjectileWidth      *float32 `json:"projectileWidth,omitempty"`
	ProjectileHeight     *float32 `json:"projectileHeight,omitempty"`
	MaxAttacksPerTick    *int     `json:"maxAttacksPerTick,omitempty"`
}

func (p tuningPatch) apply(t Tuning) Tuning {
	setInt(&t.TicksPerSecond, p.TicksPerSecond)
	setInt(&t.MaxCatchupTicks, p.MaxCatchupTicks)
	setFloat(&t.PlayerSpeed, p.PlayerSpeed)
	setFloat(&t.ProjectileSpeed, p.ProjectileSpeed)
	setInt(&t.ProjectileLifetimeMs, p.ProjectileLifetimeMs)
	setFloat(&t.PlayerWidth, p.PlayerWidth)
	setFloat(&t.PlayerHeight, p.PlayerHeight)
	setFloat(&t.ProjectileWidth, p.ProjectileWidth)
	setFloat(&t.ProjectileHeight, p.ProjectileHeight)
	setInt(&t.MaxAttacksPerTick, p.MaxAttacksPerTick)
	return t
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float32, v *float32) {
	if v != nil {
		*dst = *v
	}
}

// HandleConfig 读取与更新玩法参数（热更新，下一个 Tick 生效）
// GET /admin/config  返回当前配置
// POST /admin/config 以 JSON 载荷更新部分字段
func (a *Admin) HandleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, a.tuning.Load())
	case http.MethodPost:
		var body tuningPatch
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		next := body.apply(a.tuning.Load())
		if err := a.tuning.Store(next); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		a.log.Infof("config updated: tps=%d playerSpeed=%.1f projectileSpeed=%.1f lifetime=%dms maxAttacksPerTick=%d",
			next.TicksPerSecond, next.PlayerSpeed, next.ProjectileSpeed, next.ProjectileLifetimeMs, next.MaxAttacksPerTick)
		writeJSON(w, http.StatusOK, next)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleSchema 输出 Tuning 的 JSON Schema
func (a *Admin) HandleSchema(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, TuningSchema())
}

// TuningSchema 由 Tuning 结构体反射生成 schema
func TuningSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(&Tuning{})
	schema.Title = "blitz gameplay tuning"
	schema.Description = "Hot-reloadable parameters accepted by POST /admin/config"
	return schema
}

// HandleMetrics 输出运行指标
// GET /metrics
func (a *Admin) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"metrics": a.metrics.Snapshot()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
