package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/habitloop/internal/db"
	"github.com/habitloop/internal/handler"
	"github.com/habitloop/internal/router"
	"github.com/habitloop/internal/scoring"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type localClient struct {
	handler http.Handler
	jar     http.CookieJar
}

func newLocalClient(h http.Handler) *localClient {
	jar, _ := cookiejar.New(nil)
	return &localClient{handler: h, jar: jar}
}

func (c *localClient) do(t *testing.T, method, path string, payload any) (*http.Response, map[string]any) {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	reqURL, _ := url.Parse("https://local" + path)
	req.URL = reqURL
	for _, cookie := range c.jar.Cookies(reqURL) {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	resp := w.Result()
	c.jar.SetCookies(reqURL, resp.Cookies())

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		decoded = nil
	}
	resp.Body.Close()
	return resp, decoded
}

func setupRouter(t *testing.T) (*localClient, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := gdb.AutoMigrate(&db.User{}, &db.Task{}, &db.TaskCompletion{}, &db.LedgerEvent{}, &db.Circle{}, &db.CircleMembership{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	db.DB = gdb

	api := handler.NewAPI(gdb, scoring.ReputationPolicy{})
	r := router.SetupRouter(api, "test-secret")

	return newLocalClient(r), func() {
		sqlDB, err := gdb.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}

func TestAPIFlow(t *testing.T) {
	client, cleanup := setupRouter(t)
	defer cleanup()

	// 未登录访问受保护路由
	resp, _ := client.do(t, http.MethodGet, "/api/tasks", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 before login, got %d", resp.StatusCode)
	}

	// 注册即登录
	resp, _ = client.do(t, http.MethodPost, "/api/register", map[string]any{
		"username": "alice",
		"password": "supersecret",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register failed with %d", resp.StatusCode)
	}

	// 完善档案
	resp, _ = client.do(t, http.MethodPost, "/api/profile/complete", map[string]any{
		"username": "alice_01",
		"timezone": "UTC",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("profile complete failed with %d", resp.StatusCode)
	}

	// 建任务
	resp, body := client.do(t, http.MethodPost, "/api/tasks", map[string]any{
		"title":     "晨跑",
		"frequency": "daily",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create task failed with %d", resp.StatusCode)
	}
	task, _ := body["task"].(map[string]any)
	taskID := int(task["id"].(float64))

	// 打卡
	completePath := fmt.Sprintf("/api/tasks/%d/complete", taskID)
	resp, body = client.do(t, http.MethodPost, completePath, map[string]any{"tz": "UTC"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("complete failed with %d", resp.StatusCode)
	}
	if body["streakAfter"].(float64) != 1 {
		t.Fatalf("expected streakAfter 1, got %v", body["streakAfter"])
	}
	if body["pointsAwarded"].(float64) != 2 {
		t.Fatalf("expected 2 points, got %v", body["pointsAwarded"])
	}

	// 同一周期重复打卡被拒绝
	resp, _ = client.do(t, http.MethodPost, completePath, map[string]any{"tz": "UTC"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate completion should return 409, got %d", resp.StatusCode)
	}

	// 今日视图反映打卡状态
	resp, body = client.do(t, http.MethodGet, "/api/tasks/today?tz=UTC", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("today failed with %d", resp.StatusCode)
	}
	today := body["tasks"].([]any)[0].(map[string]any)
	if today["completed_for_period"] != true {
		t.Fatalf("task should be completed for the period: %v", today)
	}

	// 结算（今天的任务已完成，昨天无任务记录 → 扣一笔昨日罚分）
	resp, body = client.do(t, http.MethodPost, "/api/score/settle-missed", map[string]any{"tz": "UTC"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("settle failed with %d", resp.StatusCode)
	}
	firstPenalized := body["penalizedDaily"].(float64)

	// 再次结算必须是无操作
	resp, body = client.do(t, http.MethodPost, "/api/score/settle-missed", map[string]any{"tz": "UTC"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("second settle failed with %d", resp.StatusCode)
	}
	if body["penalizedDaily"].(float64) != 0 || body["penalizedWeekly"].(float64) != 0 {
		t.Fatalf("second settle should penalize nothing, got %v", body)
	}

	// 总分 = 打卡 +2，叠加首次结算的罚分
	resp, body = client.do(t, http.MethodGet, "/api/score", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("score failed with %d", resp.StatusCode)
	}
	expected := 2 + int(firstPenalized)*scoring.DailyMissPenalty
	if int(body["score"].(float64)) != expected {
		t.Fatalf("expected score %d, got %v", expected, body["score"])
	}

	// 动态流包含打卡事件
	resp, body = client.do(t, http.MethodGet, "/api/score/feed", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("feed failed with %d", resp.StatusCode)
	}
	if len(body["items"].([]any)) == 0 {
		t.Fatal("feed should not be empty")
	}

	// 圈子流程
	resp, body = client.do(t, http.MethodPost, "/api/circles", map[string]any{"name": "早起俱乐部"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create circle failed with %d", resp.StatusCode)
	}
	circleID := int(body["id"].(float64))

	resp, body = client.do(t, http.MethodGet, fmt.Sprintf("/api/circles/%d/leaderboard", circleID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("leaderboard failed with %d", resp.StatusCode)
	}
	if len(body["members"].([]any)) != 1 {
		t.Fatalf("expected 1 leaderboard entry, got %v", body["members"])
	}

	// 登出后访问被拒
	resp, _ = client.do(t, http.MethodPost, "/api/logout", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout failed with %d", resp.StatusCode)
	}
	resp, _ = client.do(t, http.MethodGet, "/api/tasks", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", resp.StatusCode)
	}
}

func TestAPIValidation(t *testing.T) {
	client, cleanup := setupRouter(t)
	defer cleanup()

	resp, _ := client.do(t, http.MethodPost, "/api/register", map[string]any{
		"username": "bob",
		"password": "short",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("weak password should return 400, got %d", resp.StatusCode)
	}

	resp, _ = client.do(t, http.MethodPost, "/api/register", map[string]any{
		"username": "bob",
		"password": "longenough",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register failed with %d", resp.StatusCode)
	}

	// 非法频率
	resp, _ = client.do(t, http.MethodPost, "/api/tasks", map[string]any{
		"title":     "读书",
		"frequency": "monthly",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid frequency should return 400, got %d", resp.StatusCode)
	}

	// 非法时间戳
	resp, _ = client.do(t, http.MethodPost, "/api/tasks", map[string]any{
		"title":     "读书",
		"frequency": "daily",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create task failed with %d", resp.StatusCode)
	}
	resp, _ = client.do(t, http.MethodPost, "/api/tasks/1/complete", map[string]any{
		"completed_at": "not-a-timestamp",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad timestamp should return 400, got %d", resp.StatusCode)
	}
}
