package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"aph/internal/adapters/backend"
	"aph/internal/adapters/http/middleware"
	localidentity "aph/internal/adapters/identity"
	"aph/internal/adapters/session"
	"aph/internal/adapters/storage/credential"
	"aph/internal/adapters/storage/storagetest"
	"aph/internal/application/auth"
	"aph/internal/application/orchestrators"
	"aph/internal/domain/program"
)

type testApp struct {
	handler http.Handler
	stores  backend.Stores

	mu     sync.Mutex
	resets map[string]string // email -> reset token
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newTestAppConfig(t, Config{})
}

// newTestAppConfig builds the app with cfg. The CSRF key and a permissive
// rate limiter are filled in.
func newTestAppConfig(t *testing.T, cfg Config) *testApp {
	t.Helper()
	db := storagetest.Open(t)
	stores := backend.NewSQLite(db)
	app := &testApp{stores: stores, resets: map[string]string{}}

	provider := localidentity.NewLocalProvider(credential.NewSQLiteStore(db), []byte("0123456789abcdef0123456789abcdef"),
		func(_ context.Context, email, token string) error {
			app.mu.Lock()
			defer app.mu.Unlock()
			app.resets[email] = token
			return nil
		})
	svc := auth.NewService(provider, stores.Users, session.NewMemoryStore(0))

	if _, err := orchestrators.ExecuteSeedAdmin(context.Background(),
		orchestrators.SeedAdminInput{Email: "admin@aph.example", Password: "admin-pass"},
		orchestrators.SeedAdminDeps{Provider: provider, Users: stores.Users}); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	srv := NewServer(svc, stores, WithPasswordResetter(provider))
	cfg.CSRFKey = []byte("abcdefghijklmnopqrstuvwxyz012345")
	cfg.Limiter = middleware.NewRateLimiter(10000, time.Second)
	app.handler = srv.Handler(cfg)
	return app
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, r)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func (a *testApp) login(t *testing.T, email, password string) string {
	t.Helper()
	rr := a.do(t, "POST", "/api/auth/login", "", map[string]string{"email": email, "password": password})
	if rr.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", email, rr.Code, rr.Body.String())
	}
	return decode[sessionView](t, rr).Token
}

func (a *testApp) signup(t *testing.T, email, role string) {
	t.Helper()
	rr := a.do(t, "POST", "/api/auth/signup", "", map[string]string{
		"email": email, "password": "secret1", "confirmPassword": "secret1", "name": "Test " + role, "role": role,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup %s: %d %s", email, rr.Code, rr.Body.String())
	}
}

func (a *testApp) program(t *testing.T, price float64, active bool) program.Program {
	t.Helper()
	p, err := a.stores.Programs.Create(context.Background(), program.NewProgram{
		Name: "Zone 1", Price: price, MaxParticipants: 10, IsActive: active,
	})
	if err != nil {
		t.Fatalf("create program: %v", err)
	}
	return p
}

func paymentBody(programID string) map[string]string {
	return map[string]string{
		"cardNumber": "4111 1111 1111 1111", "expiryDate": "12/29", "cvv": "123",
		"cardholderName": "Jordan Lee", "email": "jordan@example.com", "phone": "0211234567",
		"program": programID,
	}
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t)
	if rr := app.do(t, "GET", "/healthz", "", nil); rr.Code != http.StatusOK {
		t.Errorf("/healthz = %d", rr.Code)
	}
	rr := app.do(t, "GET", "/metrics", "", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "aph_http_requests_total") {
		t.Errorf("/metrics = %d", rr.Code)
	}
}

func TestAuthFlow(t *testing.T) {
	app := newTestApp(t)
	app.signup(t, "sam@example.com", "student")
	token := app.login(t, "sam@example.com", "secret1")

	rr := app.do(t, "GET", "/api/auth/me", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("me = %d %s", rr.Code, rr.Body.String())
	}
	me := decode[map[string]any](t, rr)
	if me["email"] != "sam@example.com" || me["role"] != "student" || me["isAuthenticated"] != true {
		t.Errorf("me = %v", me)
	}

	if rr := app.do(t, "POST", "/api/auth/logout", token, nil); rr.Code != http.StatusNoContent {
		t.Errorf("logout = %d", rr.Code)
	}
	if rr := app.do(t, "GET", "/api/auth/me", token, nil); rr.Code != http.StatusUnauthorized {
		t.Errorf("me after logout = %d, want 401", rr.Code)
	}
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	t.Fatalf("no session cookie in %v", rr.Header()["Set-Cookie"])
	return nil
}

func TestSessionCookie_SecurePerServer(t *testing.T) {
	secure := newTestAppConfig(t, Config{Secure: true})
	plain := newTestApp(t)
	for _, tt := range []struct {
		name string
		app  *testApp
		want bool
	}{
		{"secure", secure, true},
		{"plain", plain, false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			tt.app.signup(t, "sam@example.com", "student")
			rr := tt.app.do(t, "POST", "/api/auth/login", "", map[string]string{"email": "sam@example.com", "password": "secret1"})
			if rr.Code != http.StatusOK {
				t.Fatalf("login = %d %s", rr.Code, rr.Body.String())
			}
			c := sessionCookie(t, rr)
			if c.Secure != tt.want || !c.HttpOnly {
				t.Errorf("login cookie Secure = %v HttpOnly = %v, want Secure %v", c.Secure, c.HttpOnly, tt.want)
			}
			// Lives as long as the session, not the hour-long access token.
			if c.MaxAge < int((23 * time.Hour).Seconds()) {
				t.Errorf("cookie MaxAge = %d", c.MaxAge)
			}

			rr = tt.app.do(t, "POST", "/api/auth/logout", c.Value, nil)
			if rr.Code != http.StatusNoContent {
				t.Fatalf("logout = %d", rr.Code)
			}
			if c := sessionCookie(t, rr); c.Secure != tt.want || c.MaxAge >= 0 {
				t.Errorf("logout cookie Secure = %v MaxAge = %d", c.Secure, c.MaxAge)
			}
		})
	}
}

func TestSignUp_Validation(t *testing.T) {
	app := newTestApp(t)
	rr := app.do(t, "POST", "/api/auth/signup", "", map[string]string{
		"email": "a@b.co", "password": "secret1", "confirmPassword": "secret2", "name": "A",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decode[map[string]map[string]string](t, rr)
	if body["errors"]["confirmPassword"] != "Passwords do not match" {
		t.Errorf("errors = %v", body["errors"])
	}

	app.signup(t, "dup@example.com", "user")
	rr = app.do(t, "POST", "/api/auth/signup", "", map[string]string{
		"email": "dup@example.com", "password": "secret1", "confirmPassword": "secret1", "name": "B",
	})
	if rr.Code != http.StatusBadRequest || !strings.Contains(rr.Body.String(), "User already registered") {
		t.Errorf("duplicate signup = %d %s", rr.Code, rr.Body.String())
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	app := newTestApp(t)
	app.signup(t, "sam@example.com", "user")
	rr := app.do(t, "POST", "/api/auth/login", "", map[string]string{"email": "sam@example.com", "password": "nope123"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := decode[map[string]string](t, rr)["error"]; got != "Invalid login credentials" {
		t.Errorf("error = %q", got)
	}
}

func TestPrograms_AccessControl(t *testing.T) {
	app := newTestApp(t)
	app.program(t, 100, true)
	app.program(t, 100, false)
	app.signup(t, "coach@example.com", "coach")
	coach := app.login(t, "coach@example.com", "secret1")
	admin := app.login(t, "admin@aph.example", "admin-pass")

	if got := decode[[]programView](t, app.do(t, "GET", "/api/programs?all=true", "", nil)); len(got) != 1 {
		t.Errorf("anonymous sees %d programs, want 1 active", len(got))
	}
	if got := decode[[]programView](t, app.do(t, "GET", "/api/programs?all=true", coach, nil)); len(got) != 2 {
		t.Errorf("coach with all=true sees %d programs, want 2", len(got))
	}

	create := map[string]any{"name": "Futures Under 10", "price": 150, "maxParticipants": 20}
	if rr := app.do(t, "POST", "/api/programs", "", create); rr.Code != http.StatusUnauthorized {
		t.Errorf("anonymous create = %d, want 401", rr.Code)
	}
	if rr := app.do(t, "POST", "/api/programs", coach, create); rr.Code != http.StatusForbidden {
		t.Errorf("coach create = %d, want 403", rr.Code)
	}
	rr := app.do(t, "POST", "/api/programs", admin, create)
	if rr.Code != http.StatusCreated {
		t.Fatalf("admin create = %d %s", rr.Code, rr.Body.String())
	}
	created := decode[programView](t, rr)
	if !created.IsActive || created.SpotsLeft != 20 {
		t.Errorf("created = %+v", created)
	}

	rr = app.do(t, "PATCH", "/api/programs/"+created.ID, admin, map[string]any{"price": -1})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("negative price = %d, want 400", rr.Code)
	}
	if rr := app.do(t, "DELETE", "/api/programs/"+created.ID, admin, nil); rr.Code != http.StatusNoContent {
		t.Errorf("delete = %d", rr.Code)
	}
	if rr := app.do(t, "GET", "/api/programs/"+created.ID, "", nil); rr.Code != http.StatusNotFound {
		t.Errorf("get deleted = %d, want 404", rr.Code)
	}
}

func TestSubmitPayment_Anonymous(t *testing.T) {
	app := newTestApp(t)
	p := app.program(t, 275, true)

	rr := app.do(t, "POST", "/api/payments", "", paymentBody(p.ID))
	if rr.Code != http.StatusCreated {
		t.Fatalf("submit = %d %s", rr.Code, rr.Body.String())
	}
	out := decode[checkoutView](t, rr)
	if out.Payment.Amount != 275 || out.Payment.PaymentMethod != "visa" || out.Payment.CardLastFour != "1111" {
		t.Errorf("payment = %+v", out.Payment)
	}
	if out.Program.CurrentParticipants != 1 || out.Enrollment.Status != "active" {
		t.Errorf("checkout = %+v", out)
	}

	admin := app.login(t, "admin@aph.example", "admin-pass")
	if got := decode[[]paymentView](t, app.do(t, "GET", "/api/payments", admin, nil)); len(got) != 1 {
		t.Errorf("admin sees %d payments", len(got))
	}
	summary := decode[map[string]any](t, app.do(t, "GET", "/api/analytics/payments", admin, nil))
	if summary["totalRevenue"] != 275.0 || summary["totalPayments"] != 1.0 {
		t.Errorf("analytics = %v", summary)
	}
}

func TestSubmitPayment_Errors(t *testing.T) {
	app := newTestApp(t)
	p := app.program(t, 100, true)

	body := paymentBody(p.ID)
	body["cardNumber"] = "4111"
	rr := app.do(t, "POST", "/api/payments", "", body)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	errs := decode[map[string]map[string]string](t, rr)["errors"]
	if errs["cardNumber"] != "Please enter a valid 16-digit card number" {
		t.Errorf("errors = %v", errs)
	}

	if rr := app.do(t, "POST", "/api/payments", "", paymentBody("missing")); rr.Code != http.StatusNotFound {
		t.Errorf("unknown program = %d, want 404", rr.Code)
	}

	inactive := app.program(t, 100, false)
	if rr := app.do(t, "POST", "/api/payments", "", paymentBody(inactive.ID)); rr.Code != http.StatusConflict {
		t.Errorf("inactive program = %d, want 409", rr.Code)
	}
}

func TestMyPaymentsAndStatusChanges(t *testing.T) {
	app := newTestApp(t)
	p := app.program(t, 90, true)
	app.signup(t, "jordan@example.com", "user")
	token := app.login(t, "jordan@example.com", "secret1")

	rr := app.do(t, "POST", "/api/payments", token, paymentBody(p.ID))
	if rr.Code != http.StatusCreated {
		t.Fatalf("submit = %d %s", rr.Code, rr.Body.String())
	}
	paymentID := decode[checkoutView](t, rr).Payment.ID

	if got := decode[[]paymentView](t, app.do(t, "GET", "/api/me/payments", token, nil)); len(got) != 1 {
		t.Errorf("my payments = %d", len(got))
	}
	if got := decode[[]enrollmentView](t, app.do(t, "GET", "/api/me/enrollments", token, nil)); len(got) != 1 {
		t.Errorf("my enrollments = %d", len(got))
	}
	if rr := app.do(t, "GET", "/api/payments", token, nil); rr.Code != http.StatusForbidden {
		t.Errorf("user lists all payments = %d, want 403", rr.Code)
	}

	admin := app.login(t, "admin@aph.example", "admin-pass")
	rr = app.do(t, "PATCH", "/api/payments/"+paymentID+"/status", admin, map[string]string{"status": "refunded"})
	if rr.Code != http.StatusOK || decode[paymentView](t, rr).Status != "refunded" {
		t.Errorf("refund = %d %s", rr.Code, rr.Body.String())
	}
	rr = app.do(t, "PATCH", "/api/payments/"+paymentID+"/status", admin, map[string]string{"status": "completed"})
	if rr.Code != http.StatusConflict {
		t.Errorf("refunded→completed = %d, want 409", rr.Code)
	}
	if rr := app.do(t, "PATCH", "/api/payments/nope/status", admin, map[string]string{"status": "failed"}); rr.Code != http.StatusNotFound {
		t.Errorf("missing payment = %d, want 404", rr.Code)
	}

	logs := decode[[]map[string]any](t, app.do(t, "GET", "/api/activity?limit=10", admin, nil))
	if len(logs) != 3 || logs[0]["action"] != "payment_status_changed" || logs[2]["action"] != "signed_up" {
		t.Errorf("activity = %v", logs)
	}
}

func TestSettingsAndRoles(t *testing.T) {
	app := newTestApp(t)
	admin := app.login(t, "admin@aph.example", "admin-pass")

	rr := app.do(t, "PUT", "/api/settings", admin, map[string]any{"key": "registration_open", "value": true})
	if rr.Code != http.StatusOK {
		t.Fatalf("put setting = %d %s", rr.Code, rr.Body.String())
	}
	all := decode[[]map[string]any](t, app.do(t, "GET", "/api/settings", admin, nil))
	if len(all) != 1 || all[0]["key"] != "registration_open" || all[0]["value"] != true {
		t.Errorf("settings = %v", all)
	}
	if rr := app.do(t, "PUT", "/api/settings", admin, map[string]any{"key": " ", "value": 1}); rr.Code != http.StatusBadRequest {
		t.Errorf("blank key = %d, want 400", rr.Code)
	}

	app.signup(t, "kim@example.com", "user")
	users := decode[[]userView](t, app.do(t, "GET", "/api/users", admin, nil))
	var kimID string
	for _, u := range users {
		if u.Email == "kim@example.com" {
			kimID = u.ID
		}
	}
	if kimID == "" {
		t.Fatalf("kim not listed in %v", users)
	}
	if rr := app.do(t, "PATCH", "/api/users/"+kimID+"/role", admin, map[string]string{"role": "coach"}); rr.Code != http.StatusNoContent {
		t.Errorf("role change = %d %s", rr.Code, rr.Body.String())
	}
	if rr := app.do(t, "PATCH", "/api/users/"+kimID+"/role", admin, map[string]string{"role": "owner"}); rr.Code != http.StatusBadRequest {
		t.Errorf("bad role = %d, want 400", rr.Code)
	}
	kim := app.login(t, "kim@example.com", "secret1")
	if rr := app.do(t, "GET", "/api/analytics/users", kim, nil); rr.Code != http.StatusOK {
		t.Errorf("coach analytics = %d", rr.Code)
	}
}

func TestPasswordReset(t *testing.T) {
	app := newTestApp(t)
	app.signup(t, "sam@example.com", "user")

	if rr := app.do(t, "POST", "/api/auth/reset-password", "", map[string]string{"email": "ghost@example.com"}); rr.Code != http.StatusAccepted {
		t.Errorf("unknown email = %d, want 202", rr.Code)
	}
	if rr := app.do(t, "POST", "/api/auth/reset-password", "", map[string]string{"email": "sam@example.com"}); rr.Code != http.StatusAccepted {
		t.Fatalf("reset = %d", rr.Code)
	}
	app.mu.Lock()
	token := app.resets["sam@example.com"]
	app.mu.Unlock()
	if token == "" {
		t.Fatal("no reset token delivered")
	}

	rr := app.do(t, "POST", "/api/auth/reset-password/confirm", "", map[string]string{"token": token, "password": "newpass1"})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("confirm = %d %s", rr.Code, rr.Body.String())
	}
	app.login(t, "sam@example.com", "newpass1")

	rr = app.do(t, "POST", "/api/auth/reset-password/confirm", "", map[string]string{"token": token, "password": "another1"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("reused token = %d, want 400", rr.Code)
	}
}

func TestRejectsUnknownFields(t *testing.T) {
	app := newTestApp(t)
	rr := app.do(t, "POST", "/api/auth/login", "", map[string]string{"email": "a@b.co", "password": "x", "remember": "1"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}
