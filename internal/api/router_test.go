package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fitclub/billing/internal/api/cron"
	"github.com/fitclub/billing/internal/api/dto"
	v1 "github.com/fitclub/billing/internal/api/v1"
	"github.com/fitclub/billing/internal/auth"
	"github.com/fitclub/billing/internal/domain/proration"
	"github.com/fitclub/billing/internal/integration/stripe"
	"github.com/fitclub/billing/internal/metrics"
	"github.com/fitclub/billing/internal/service"
	"github.com/fitclub/billing/internal/testutil"
	"github.com/fitclub/billing/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/suite"
)

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

// purchaseBody is the slice of the purchase response the tests read
type purchaseBody struct {
	Membership struct {
		ID      string                 `json:"id"`
		Status  types.MembershipStatus `json:"status"`
		EndDate time.Time              `json:"end_date"`
	} `json:"membership"`
	PaymentID   string `json:"payment_id"`
	CheckoutURL string `json:"checkout_url"`
}

type RouterSuite struct {
	testutil.BaseServiceTestSuite
	router *gin.Engine
	token  string
}

func TestRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	cfg := s.GetConfig()
	cfg.Auth.Secret = "router-secret"
	cfg.Cron.Secret = "cron-secret"

	stores := s.GetStores()
	params := service.ServiceParams{
		Logger:           s.GetLogger(),
		Config:           cfg,
		DB:               s.GetDB(),
		PlanRepo:         stores.PlanRepo,
		MembershipRepo:   stores.MembershipRepo,
		PaymentRepo:      stores.PaymentRepo,
		UserRepo:         stores.UserRepo,
		Calculator:       proration.NewCalculator(),
		CheckoutProvider: s.GetProvider(),
		Notifier:         s.GetNotifier(),
		Metrics:          s.GetMetrics(),
		Clock:            s.GetClock(),
		Location:         time.UTC,
	}

	memberships := service.NewMembershipService(params)
	payments := service.NewPaymentService(params)
	sweeps := service.NewSweepService(params)
	log := s.GetLogger()

	s.router = NewRouter(Handlers{
		Health:         v1.NewHealthHandler(okPinger{}, log),
		Membership:     v1.NewMembershipHandler(memberships, log),
		Payment:        v1.NewPaymentHandler(payments, log),
		Plan:           v1.NewPlanHandler(service.NewPlanService(params), log),
		Webhook:        v1.NewWebhookHandler(payments, log),
		MembershipCron: cron.NewMembershipCronHandler(sweeps, cfg, log),
		PaymentCron:    cron.NewPaymentCronHandler(sweeps, log),
	}, cfg, log, auth.NewProvider(cfg), metrics.NewRegistry())

	s.CreatePlan("basic", types.PlanTierBasic, "100", 30)
	s.CreateUser("user_1")

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "user_1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(cfg.Auth.Secret))
	s.Require().NoError(err)
	s.token = token
}

func (s *RouterSuite) do(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := jsoniter.Marshal(b)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RouterSuite) member() map[string]string {
	return map[string]string{types.HeaderAuthorization: "Bearer " + s.token}
}

func (s *RouterSuite) TestHealthAndPlan() {
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/health", nil, nil).Code)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/v1/plans/basic", nil, nil).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/v1/plans/missing", nil, nil).Code)
}

func (s *RouterSuite) TestMembershipRoutesRequireToken() {
	w := s.do(http.MethodPost, "/v1/memberships", dto.PurchaseMembershipRequest{PlanID: "basic"}, nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *RouterSuite) TestPurchaseWebhookFlow() {
	w := s.do(http.MethodPost, "/v1/memberships", dto.PurchaseMembershipRequest{PlanID: "basic"}, s.member())
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var purchase purchaseBody
	s.Require().NoError(jsoniter.Unmarshal(w.Body.Bytes(), &purchase))
	s.NotEmpty(purchase.CheckoutURL)

	// second live membership is a conflict
	w = s.do(http.MethodPost, "/v1/memberships", dto.PurchaseMembershipRequest{PlanID: "basic"}, s.member())
	s.Equal(http.StatusConflict, w.Code)

	event := testutil.EventPayload(stripe.Event{
		ID:        "evt_1",
		Type:      stripe.EventCheckoutSessionCompleted,
		Kind:      stripe.EventKindCompleted,
		PaymentID: purchase.PaymentID,
		UserID:    "user_1",
		SessionID: "cs_test_1",
	})

	w = s.do(http.MethodPost, "/v1/webhooks/stripe", event, map[string]string{types.HeaderStripeSignature: "forged"})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/v1/webhooks/stripe", event, map[string]string{types.HeaderStripeSignature: testutil.ValidWebhookSignature})
	s.Require().Equal(http.StatusOK, w.Code)
	var hook dto.WebhookResponse
	s.Require().NoError(jsoniter.Unmarshal(w.Body.Bytes(), &hook))
	s.Equal("processed", hook.Result)

	w = s.do(http.MethodGet, "/v1/payments/success?session_id=cs_test_1", nil, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var status dto.PaymentStatusResponse
	s.Require().NoError(jsoniter.Unmarshal(w.Body.Bytes(), &status))
	s.Equal(types.PaymentStatusPaid, status.Status)

	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/v1/payments/success", nil, nil).Code)

	w = s.do(http.MethodGet, "/v1/memberships/"+purchase.Membership.ID, nil, s.member())
	s.Equal(http.StatusOK, w.Code)
}

func (s *RouterSuite) TestFreezeRoute() {
	w := s.do(http.MethodPost, "/v1/memberships", dto.PurchaseMembershipRequest{PlanID: "basic"}, s.member())
	s.Require().Equal(http.StatusCreated, w.Code)
	var purchase purchaseBody
	s.Require().NoError(jsoniter.Unmarshal(w.Body.Bytes(), &purchase))

	w = s.do(http.MethodPost, "/v1/memberships/"+purchase.Membership.ID+"/freeze", dto.FreezeMembershipRequest{
		FrozenFrom: types.FormatDate(types.AddDays(s.Today(), 1)),
		FrozenTo:   types.FormatDate(types.AddDays(s.Today(), 11)),
	}, s.member())
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var frozen struct {
		Status  types.MembershipStatus `json:"status"`
		EndDate time.Time              `json:"end_date"`
	}
	s.Require().NoError(jsoniter.Unmarshal(w.Body.Bytes(), &frozen))
	s.Equal(types.MembershipStatusFrozen, frozen.Status)
	s.True(types.AddDays(s.Today(), 40).Equal(frozen.EndDate))

	w = s.do(http.MethodPost, "/v1/memberships/"+purchase.Membership.ID+"/upgrade?plan_id=basic", nil, s.member())
	s.Equal(http.StatusConflict, w.Code)
}

func (s *RouterSuite) TestCronRoutes() {
	cronHeaders := map[string]string{types.HeaderCronSecret: "cron-secret"}

	s.Equal(http.StatusUnauthorized, s.do(http.MethodPost, "/v1/cron/memberships/expire", nil, nil).Code)

	w := s.do(http.MethodPost, "/v1/cron/memberships/expire", nil, cronHeaders)
	s.Require().Equal(http.StatusOK, w.Code)
	var resp dto.SweepResponse
	s.Require().NoError(jsoniter.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("expire", resp.Sweep)
	s.Equal("2025-01-01", resp.Date)

	w = s.do(http.MethodPost, "/v1/cron/memberships/remind", []byte(`{"date":"2025-02-01","days_before":3}`), cronHeaders)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Require().NoError(jsoniter.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("2025-02-01", resp.Date)

	w = s.do(http.MethodPost, "/v1/cron/memberships/remind", []byte(`{"days_before":-1}`), cronHeaders)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/v1/cron/memberships/auto-renew", []byte(`{"date":"01/02/2025"}`), cronHeaders)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/v1/cron/payments/expire-sessions", nil, cronHeaders)
	s.Equal(http.StatusOK, w.Code)
}
