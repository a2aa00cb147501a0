package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/Govind-619/FarmMart/config"
	"github.com/Govind-619/FarmMart/controllers"
	"github.com/Govind-619/FarmMart/models"
	"github.com/Govind-619/FarmMart/mpesa"
	"github.com/Govind-619/FarmMart/revocation"
	"github.com/Govind-619/FarmMart/services"
	"github.com/Govind-619/FarmMart/testutil"
	"github.com/Govind-619/FarmMart/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	utils.InitAuth("routes-test-secret", 0, 0)
	if err := utils.RegisterValidators(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// fakeDaraja answers token and push requests like the gateway sandbox.
type fakeDaraja struct {
	srv *httptest.Server

	mu         sync.Mutex
	pushStatus int
	pushBody   string
	pushes     []map[string]interface{}
}

func newFakeDaraja(t *testing.T) *fakeDaraja {
	d := &fakeDaraja{
		pushStatus: http.StatusOK,
		pushBody: `{"MerchantRequestID":"29115-34620561-1","CheckoutRequestID":"ws_CO_191220191020363925",` +
			`"ResponseCode":"0","ResponseDescription":"Success. Request accepted for processing",` +
			`"CustomerMessage":"Success. Request accepted for processing"}`,
	}
	d.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/v1/generate":
			_, _ = w.Write([]byte(`{"access_token":"sandbox-token","expires_in":"3599"}`))
		case "/mpesa/stkpush/v1/processrequest":
			var push map[string]interface{}
			_ = json.NewDecoder(r.Body).Decode(&push)
			d.mu.Lock()
			d.pushes = append(d.pushes, push)
			status, body := d.pushStatus, d.pushBody
			d.mu.Unlock()
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(d.srv.Close)
	return d
}

func (d *fakeDaraja) respond(status int, body string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pushStatus, d.pushBody = status, body
}

type harness struct {
	t         *testing.T
	db        *gorm.DB
	fx        *testutil.Fixtures
	daraja    *fakeDaraja
	callbacks *services.CallbackService
	router    *gin.Engine
}

func newHarness(t *testing.T, limiter *utils.RateLimiter) *harness {
	db := testutil.NewDB(t)
	config.DB = db
	daraja := newFakeDaraja(t)
	gateway := mpesa.NewClient(mpesa.Config{
		BaseURL:        daraja.srv.URL,
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		ShortCode:      "174379",
		Passkey:        "passkey",
		CallbackURL:    "https://farmart.example/callback-url",
	})
	store := revocation.NewGormStore(db)
	callbacks := services.NewCallbackService(db, nil, nil)
	controllers.Init(controllers.Deps{
		Payments:    services.NewPaymentService(db, gateway),
		Callbacks:   callbacks,
		Orders:      services.NewOrderService(db),
		Checkout:    services.NewCheckoutService(db),
		Revocations: store,
	})
	return &harness{
		t:         t,
		db:        db,
		fx:        testutil.NewFixtures(t, db),
		daraja:    daraja,
		callbacks: callbacks,
		router:    SetupRouter(store, limiter),
	}
}

func (h *harness) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(h.t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, into interface{}) {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if into != nil {
		require.NoError(t, json.Unmarshal(env.Data, into), w.Body.String())
	}
}

type account struct {
	ID           uint
	AccessToken  string
	RefreshToken string
}

func (h *harness) signUp(path, username, phone string, extra map[string]string) account {
	h.t.Helper()
	body := map[string]string{
		"username":         username,
		"email":            username + "@farmart.test",
		"password":         "Secret123",
		"confirm_password": "Secret123",
		"phone":            phone,
	}
	for k, v := range extra {
		body[k] = v
	}
	w := h.do(http.MethodPost, path, "", body)
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())

	var data struct {
		User   struct{ ID uint } `json:"user"`
		Tokens utils.TokenPair   `json:"tokens"`
	}
	decode(h.t, w, &data)
	return account{ID: data.User.ID, AccessToken: data.Tokens.AccessToken, RefreshToken: data.Tokens.RefreshToken}
}

func (h *harness) farmer() account {
	return h.signUp("/farmer-sign-up", "green_acres", "0722000111", map[string]string{"farm_name": "Green Acres", "location": "Nakuru"})
}

func (h *harness) buyer() account {
	return h.signUp("/buyer-sign-up", "jane_buyer", "0712345678", nil)
}

func (h *harness) listAnimal(farmer account, price int) uint {
	h.t.Helper()
	w := h.do(http.MethodPost, "/animals", farmer.AccessToken, map[string]interface{}{
		"age": 2, "price": price, "description": "Friesian heifer",
	})
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())
	var animal struct{ ID uint }
	decode(h.t, w, &animal)
	return animal.ID
}

type orderDTO struct {
	ID      uint   `json:"id"`
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Amount  string `json:"amount"`
}

func (h *harness) checkout(buyer account, animalID uint) orderDTO {
	h.t.Helper()
	w := h.do(http.MethodPost, "/add-cart", buyer.AccessToken, map[string]interface{}{"animal_id": animalID})
	require.Equal(h.t, http.StatusOK, w.Code, w.Body.String())

	w = h.do(http.MethodPost, "/checkout", buyer.AccessToken, nil)
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())
	var data struct {
		Orders []orderDTO `json:"orders"`
	}
	decode(h.t, w, &data)
	require.Len(h.t, data.Orders, 1)
	return data.Orders[0]
}

func successCallback(checkoutID string) string {
	return fmt.Sprintf(`{"Body":{"stkCallback":{"MerchantRequestID":"29115-34620561-1","CheckoutRequestID":%q,`+
		`"ResultCode":0,"ResultDesc":"The service request is processed successfully.","CallbackMetadata":{"Item":[`+
		`{"Name":"Amount","Value":500},{"Name":"MpesaReceiptNumber","Value":"NLJ7RT61SV"},`+
		`{"Name":"TransactionDate","Value":20191219102115},{"Name":"PhoneNumber","Value":254712345678}]}}}}`, checkoutID)
}

func TestPaymentFlowFromCheckoutToReceipt(t *testing.T) {
	h := newHarness(t, nil)
	farmer := h.farmer()
	buyer := h.buyer()
	order := h.checkout(buyer, h.listAnimal(farmer, 500))
	assert.Equal(t, models.OrderStatusInitiated, order.Status)
	assert.Equal(t, "500", order.Amount)

	w := h.do(http.MethodPost, "/initiate-payment", buyer.AccessToken, map[string]interface{}{"amount": 500, "orderId": order.OrderID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, h.daraja.pushBody, w.Body.String())
	require.Len(t, h.daraja.pushes, 1)
	assert.Equal(t, "254712345678", h.daraja.pushes[0]["PhoneNumber"])
	assert.Equal(t, order.OrderID, h.daraja.pushes[0]["AccountReference"])
	assert.Equal(t, models.OrderStatusPaymentInProgress, h.fx.OrderStatus(order.ID))

	body := successCallback("ws_CO_191220191020363925")
	w = h.do(http.MethodPost, "/callback-url", "", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, body, w.Body.String())
	h.callbacks.Wait()
	assert.Equal(t, models.OrderStatusPaymentSuccess, h.fx.OrderStatus(order.ID))

	// redelivery changes nothing and is still acknowledged
	w = h.do(http.MethodPost, "/callback-url", "", body)
	require.Equal(t, http.StatusOK, w.Code)
	var txns int64
	require.NoError(t, h.db.Model(&models.Transaction{}).Count(&txns).Error)
	assert.Equal(t, int64(1), txns)

	w = h.do(http.MethodGet, fmt.Sprintf("/notifications/%d", farmer.ID), farmer.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var notes []models.Notification
	decode(t, w, &notes)
	require.Len(t, notes, 1)
	assert.Equal(t, buyer.ID, notes[0].SenderID)
	assert.Equal(t, models.NotificationStatusPending, notes[0].Status)

	w = h.do(http.MethodPost, fmt.Sprintf("/orders/%d/farmer-action", order.ID), farmer.AccessToken, map[string]string{"action": "confirm"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated orderDTO
	decode(t, w, &updated)
	assert.Equal(t, models.OrderStatusFarmerConfirmed, updated.Status)

	w = h.do(http.MethodGet, fmt.Sprintf("/orders/%d/receipt", order.ID), buyer.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))
}

func TestInitiatePaymentProxiesGatewayRejection(t *testing.T) {
	h := newHarness(t, nil)
	buyer := h.buyer()
	order := h.checkout(buyer, h.listAnimal(h.farmer(), 500))

	rejection := `{"requestId":"1","errorCode":"400.002.02","errorMessage":"Bad Request - Invalid PhoneNumber"}`
	h.daraja.respond(http.StatusBadRequest, rejection)

	w := h.do(http.MethodPost, "/initiate-payment", buyer.AccessToken, map[string]interface{}{"amount": "500", "orderId": order.OrderID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, rejection, w.Body.String())

	var requests int64
	require.NoError(t, h.db.Model(&models.PaymentRequest{}).Count(&requests).Error)
	assert.Zero(t, requests)
	assert.Equal(t, models.OrderStatusInitiated, h.fx.OrderStatus(order.ID))
}

func TestInitiatePaymentValidation(t *testing.T) {
	h := newHarness(t, nil)
	buyer := h.buyer()
	order := h.checkout(buyer, h.listAnimal(h.farmer(), 500))

	for name, body := range map[string]interface{}{
		"missing order":  map[string]interface{}{"amount": 500},
		"zero amount":    map[string]interface{}{"amount": 0, "orderId": order.OrderID},
		"fraction":       map[string]interface{}{"amount": 10.5, "orderId": order.OrderID},
		"wrong total":    map[string]interface{}{"amount": 499, "orderId": order.OrderID},
		"not json":       "amount=500",
		"missing amount": map[string]interface{}{"orderId": order.OrderID},
	} {
		t.Run(name, func(t *testing.T) {
			w := h.do(http.MethodPost, "/initiate-payment", buyer.AccessToken, body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
	assert.Empty(t, h.daraja.pushes)

	w := h.do(http.MethodPost, "/initiate-payment", buyer.AccessToken, map[string]interface{}{"amount": 500, "orderId": "ORD-unknown"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCallbackAlwaysAcknowledged(t *testing.T) {
	h := newHarness(t, nil)

	for name, body := range map[string]string{
		"orphan":    successCallback("ws_CO_unknown"),
		"malformed": `{"Body":`,
		"empty":     "",
	} {
		t.Run(name, func(t *testing.T) {
			w := h.do(http.MethodPost, "/callback-url", "", body)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, body, w.Body.String())
		})
	}

	var txns int64
	require.NoError(t, h.db.Model(&models.Transaction{}).Count(&txns).Error)
	assert.Zero(t, txns)
}

func TestCallbackBodyIsBounded(t *testing.T) {
	h := newHarness(t, nil)
	body := `{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_1","ResultDesc":"` + strings.Repeat("x", 70<<10) + `"}}}`

	w := h.do(http.MethodPost, "/callback-url", "", body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	var logged int64
	require.NoError(t, h.db.Model(&models.CallbackLog{}).Count(&logged).Error)
	assert.Zero(t, logged)
}

func TestOrderActionsBeforePayment(t *testing.T) {
	h := newHarness(t, nil)
	farmer := h.farmer()
	buyer := h.buyer()
	order := h.checkout(buyer, h.listAnimal(farmer, 500))

	w := h.do(http.MethodPost, fmt.Sprintf("/orders/%d/farmer-action", order.ID), farmer.AccessToken, map[string]string{"action": "confirm"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = h.do(http.MethodPost, fmt.Sprintf("/orders/%d/buyer-action", order.ID), buyer.AccessToken, map[string]string{"action": "cancel"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.OrderStatusInitiated, h.fx.OrderStatus(order.ID))

	w = h.do(http.MethodGet, fmt.Sprintf("/orders/%d/receipt", order.ID), buyer.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAccessControl(t *testing.T) {
	h := newHarness(t, nil)
	farmer := h.farmer()
	buyer := h.buyer()

	w := h.do(http.MethodGet, "/user-profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodGet, "/user-profile", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// refresh tokens cannot be used as access tokens
	w = h.do(http.MethodGet, "/user-profile", buyer.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodPost, "/animals", buyer.AccessToken, map[string]interface{}{"price": 100, "description": "Goat"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(http.MethodPost, "/checkout", farmer.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(http.MethodGet, fmt.Sprintf("/notifications/%d", farmer.ID), buyer.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(http.MethodGet, "/admin/payments/unreconciled", farmer.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSignUpLoginProfile(t *testing.T) {
	h := newHarness(t, nil)
	farmer := h.farmer()

	w := h.do(http.MethodPost, "/farmer-sign-up", "", map[string]string{
		"username": "green_acres", "email": "green_acres@farmart.test", "password": "Secret123",
		"confirm_password": "Secret123", "phone": "0722000111", "farm_name": "Again",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(http.MethodPost, "/buyer-sign-up", "", map[string]string{
		"username": "bad_phone", "email": "bad_phone@farmart.test", "password": "Secret123",
		"confirm_password": "Secret123", "phone": "12345",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/login", "", map[string]string{"email": "green_acres@farmart.test", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodPost, "/login", "", map[string]string{"email": "GREEN_ACRES@farmart.test", "password": "Secret123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = h.do(http.MethodGet, "/user-profile", farmer.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var profile struct {
		User struct {
			Phone string   `json:"phone"`
			Roles []string `json:"roles"`
		} `json:"user"`
		Farm models.FarmersProfile `json:"farm"`
	}
	decode(t, w, &profile)
	assert.Equal(t, "254722000111", profile.User.Phone)
	assert.Equal(t, []string{models.RoleFarmer}, profile.User.Roles)
	assert.Equal(t, "Green Acres", profile.Farm.FarmName)
}

func TestRefreshAndLogout(t *testing.T) {
	h := newHarness(t, nil)
	buyer := h.buyer()

	w := h.do(http.MethodPost, "/refresh-token", "", map[string]string{"refresh_token": buyer.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var pair utils.TokenPair
	decode(t, w, &pair)
	assert.NotEmpty(t, pair.AccessToken)

	// each refresh token works once
	w = h.do(http.MethodPost, "/refresh-token", "", map[string]string{"refresh_token": buyer.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodPost, "/logout", pair.AccessToken, map[string]string{"refresh_token": pair.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(http.MethodGet, "/user-profile", pair.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = h.do(http.MethodPost, "/refresh-token", "", map[string]string{"refresh_token": pair.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCartAndAnimals(t *testing.T) {
	h := newHarness(t, nil)
	farmer := h.farmer()
	buyer := h.buyer()
	animalID := h.listAnimal(farmer, 350)

	w := h.do(http.MethodGet, "/animals", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var animals []struct {
		ID       uint   `json:"id"`
		FarmName string `json:"farm_name"`
		Price    string `json:"price"`
	}
	decode(t, w, &animals)
	require.Len(t, animals, 1)
	assert.Equal(t, "Green Acres", animals[0].FarmName)

	w = h.do(http.MethodPost, "/cart", farmer.AccessToken, map[string]interface{}{"animal_id": animalID})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(http.MethodPost, "/cart", buyer.AccessToken, map[string]interface{}{"animal_id": 9999})
	assert.Equal(t, http.StatusNotFound, w.Code)

	for i := 0; i < 2; i++ {
		w = h.do(http.MethodPost, "/cart", buyer.AccessToken, map[string]interface{}{"animal_id": animalID})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	w = h.do(http.MethodGet, "/cart", buyer.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cart utils.CartDetails
	decode(t, w, &cart)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, "700", cart.Total.String())
	assert.True(t, cart.CanCheckout)

	w = h.do(http.MethodPost, "/checkout", buyer.AccessToken, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	w = h.do(http.MethodPost, "/checkout", buyer.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodGet, "/orders", buyer.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var orders []orderDTO
	decode(t, w, &orders)
	require.Len(t, orders, 1)
	assert.Equal(t, "700", orders[0].Amount)
}

func TestUnreconciledExport(t *testing.T) {
	h := newHarness(t, nil)
	hash, err := utils.HashPassword("Secret123")
	require.NoError(t, err)
	admin := h.fx.User("0700000001", hash, models.RoleAdmin)

	w := h.do(http.MethodPost, "/login", "", map[string]string{"email": admin.Email, "password": "Secret123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		Tokens utils.TokenPair `json:"tokens"`
	}
	decode(t, w, &login)

	w = h.do(http.MethodGet, "/admin/payments/unreconciled?older_than=0s", login.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
	assert.True(t, strings.HasPrefix(w.Body.String(), "PK"))

	w = h.do(http.MethodGet, "/admin/payments/unreconciled?older_than=soon", login.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginIsRateLimited(t *testing.T) {
	h := newHarness(t, utils.NewRateLimiter(0.001, 2))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := h.do(http.MethodPost, "/login", "", map[string]string{"email": "nobody@farmart.test", "password": "x"})
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, codes)
}
