package internal

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/derWhity/devcamper/internal/ctxhelper"
	"github.com/derWhity/devcamper/internal/filestore"
	"github.com/derWhity/devcamper/internal/log"
	"github.com/derWhity/devcamper/internal/policy"
	"github.com/derWhity/devcamper/internal/query"
	"github.com/derWhity/devcamper/internal/ratelimit"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const (
	apiBasePath = "/api/v1"
	// Name of the cookie carrying the session token
	tokenCookie = "token"
	// Maximum size of a JSON request body
	maxBodySize = 1 << 20
	// Content-Security-Policy sent with every response
	contentSecurityPolicy = "default-src 'self'; img-src 'self' data:; object-src 'none'; frame-ancestors 'none'"
)

// Defines an error that defines the HTTP status that should be returned
type httpStatuser interface {
	Status() int
}

// Defines an error that returns a machine-readable error code
type errorCoder interface {
	ErrorCode() string
}

// Defines an error that contains a data field with additional information
type dataBearer interface {
	Data() interface{}
}

type errorResponse struct {
	basicResponse
	// The error code
	Error   string      `json:"error"`
	Message string      `json:"errorMessage"`
	Details interface{} `json:"errorDetails,omitempty"`
}

// Services bundles the services offered over HTTP
type Services struct {
	Bootcamps BootcampService
	Courses   CourseService
	Reviews   ReviewService
	Users     UserService
	Auth      AuthService
}

// HTTPOptions configure the HTTP handler
type HTTPOptions struct {
	// Translates the query strings of list requests
	Translator *query.Translator
	Policy     *policy.Enforcer
	// Serves the uploaded photos below /uploads/
	Uploads filestore.Store
	// Limits the requests per client - nil disables the limit
	Limiter *ratelimit.Limiter
	Metrics *Metrics
	// How long the browser keeps the token cookie
	CookieMaxAge time.Duration
	// Send the token cookie over HTTPS only
	SecureCookies bool
	// Maximum size of an uploaded photo in bytes
	MaxUploadSize int64
	// Directory with static files served for all other paths - nothing is served if empty
	StaticDir string
}

// MakeHTTPHandler creates the main HTTP handler for the devcamper service
func MakeHTTPHandler(s Services, opts HTTPOptions, logger *logrus.Entry) http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix(apiBasePath).Subrouter()

	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(encodeError),
		httptransport.ServerBefore(makeContextInjector(logger)),
		httptransport.ServerBefore(makeAuthDecoder(s.Auth)),
	}
	t := opts.Translator

	// -- Bootcamps ------------------------------------
	{
		bEp := MakeBootcampEndpoints(s.Bootcamps, opts.Policy, opts.Metrics)

		// List
		api.Methods(http.MethodGet).Path("/bootcamps").Handler(httptransport.NewServer(
			bEp.List,
			makeTunedDecoder(t, nil),
			encodeJSONResponse,
			options...,
		))

		// Radius search
		api.Methods(http.MethodGet).Path("/bootcamps/radius/{zipcode}/{distance}").Handler(httptransport.NewServer(
			bEp.List,
			makeRadiusDecoder(t),
			encodeJSONResponse,
			options...,
		))

		// GetByOwner
		api.Methods(http.MethodGet).Path("/bootcamps/user/{id}").Handler(httptransport.NewServer(
			bEp.GetByOwner,
			decodeIDFromPath,
			encodeJSONResponse,
			options...,
		))

		// Create
		api.Methods(http.MethodPost).Path("/bootcamps").Handler(httptransport.NewServer(
			bEp.Create,
			makeDocumentDecoder(""),
			encodeCreatedResponse,
			options...,
		))

		// Get
		api.Methods(http.MethodGet).Path("/bootcamps/{id}").Handler(httptransport.NewServer(
			bEp.Get,
			decodeIDFromPath,
			encodeJSONResponse,
			options...,
		))

		// Update
		api.Methods(http.MethodPut).Path("/bootcamps/{id}").Handler(httptransport.NewServer(
			bEp.Update,
			makeDocumentDecoder("id"),
			encodeJSONResponse,
			options...,
		))

		// Delete
		api.Methods(http.MethodDelete).Path("/bootcamps/{id}").Handler(httptransport.NewServer(
			bEp.Delete,
			decodeIDFromPath,
			encodeJSONResponse,
			options...,
		))

		// UploadPhoto
		api.Methods(http.MethodPut).Path("/bootcamps/{id}/photo").Handler(httptransport.NewServer(
			bEp.UploadPhoto,
			makePhotoDecoder(opts.MaxUploadSize),
			encodeJSONResponse,
			options...,
		))
	}

	// -- Courses --------------------------------------
	{
		cEp := MakeCourseEndpoints(s.Courses, opts.Policy, opts.Metrics)

		// List
		api.Methods(http.MethodGet).Path("/courses").Handler(httptransport.NewServer(
			cEp.List,
			makeTunedDecoder(t, nil),
			encodeJSONResponse,
			options...,
		))
		api.Methods(http.MethodGet).Path("/bootcamps/{bootcampId}/courses").Handler(httptransport.NewServer(
			cEp.List,
			makeTunedDecoder(t, map[string]string{"bootcampId": "bootcamp"}),
			encodeJSONResponse,
			options...,
		))

		// Create
		api.Methods(http.MethodPost).Path("/courses").Handler(httptransport.NewServer(
			cEp.Create,
			makeDocumentDecoder(""),
			encodeCreatedResponse,
			options...,
		))
		api.Methods(http.MethodPost).Path("/bootcamps/{bootcampId}/courses").Handler(httptransport.NewServer(
			cEp.Create,
			makeDocumentDecoder("bootcampId"),
			encodeCreatedResponse,
			options...,
		))

		// Get
		api.Methods(http.MethodGet).Path("/courses/{id}").Handler(httptransport.NewServer(
			cEp.Get,
			decodeIDFromPath,
			encodeJSONResponse,
			options...,
		))

		// Update
		api.Methods(http.MethodPut).Path("/courses/{id}").Handler(httptransport.NewServer(
			cEp.Update,
			makeDocumentDecoder("id"),
			encodeJSONResponse,
			options...,
		))

		// Delete
		api.Methods(http.MethodDelete).Path("/courses/{id}").Handler(httptransport.NewServer(
			cEp.Delete,
			decodeIDFromPath,
			encodeJSONResponse,
			options...,
		))
	}

	// -- Reviews --------------------------------------
	{
		rEp := MakeReviewEndpoints(s.Reviews, opts.Policy, opts.Metrics)

		// List
		api.Methods(http.MethodGet).Path("/reviews").Handler(httptransport.NewServer(
			rEp.List,
			makeTunedDecoder(t, nil),
			encodeJSONResponse,
			options...,
		))
		api.Methods(http.MethodGet).Path("/bootcamps/{bootcampId}/reviews").Handler(httptransport.NewServer(
			rEp.List,
			makeTunedDecoder(t, map[string]string{"bootcampId": "bootcamp"}),
			encodeJSONResponse,
			options...,
		))
		api.Methods(http.MethodGet).Path("/reviews/user/{id}").Handler(httptransport.NewServer(
			EnsureUserLoggedIn(rEp.List),
			makeTunedDecoder(t, map[string]string{"id": "user"}),
			encodeJSONResponse,
			options...,
		))

		// Create
		api.Methods(http.MethodPost).Path("/bootcamps/{bootcampId}/reviews").Handler(httptransport.NewServer(
			rEp.Create,
			makeDocumentDecoder("bootcampId"),
			encodeCreatedResponse,
			options...,
		))

		// Get
		api.Methods(http.MethodGet).Path("/reviews/{id}").Handler(httptransport.NewServer(
			rEp.Get,
			decodeIDFromPath,
			encodeJSONResponse,
			options...,
		))

		// Update
		api.Methods(http.MethodPut).Path("/reviews/{id}").Handler(httptransport.NewServer(
			rEp.Update,
			makeDocumentDecoder("id"),
			encodeJSONResponse,
			options...,
		))

		// Delete
		api.Methods(http.MethodDelete).Path("/reviews/{id}").Handler(httptransport.NewServer(
			rEp.Delete,
			decodeIDFromPath,
			encodeJSONResponse,
			options...,
		))
	}

	// -- Auth -----------------------------------------
	{
		aEp := MakeAuthEndpoints(s.Auth, opts.Policy)
		encodeSession := makeSessionEncoder(opts.CookieMaxAge, opts.SecureCookies)

		// Register
		api.Methods(http.MethodPost).Path("/auth/register").Handler(httptransport.NewServer(
			aEp.Register,
			makeDocumentDecoder(""),
			encodeSession,
			options...,
		))

		// Login
		api.Methods(http.MethodPost).Path("/auth/login").Handler(httptransport.NewServer(
			aEp.Login,
			makeDocumentDecoder(""),
			encodeSession,
			options...,
		))

		// Logout
		api.Methods(http.MethodGet).Path("/auth/logout").Handler(httptransport.NewServer(
			aEp.Logout,
			decodeNilRequest,
			encodeSession,
			options...,
		))

		// Current
		api.Methods(http.MethodGet).Path("/auth/current").Handler(httptransport.NewServer(
			aEp.Current,
			decodeNilRequest,
			encodeJSONResponse,
			options...,
		))

		// UpdateDetails
		api.Methods(http.MethodPut).Path("/auth/updatedetails").Handler(httptransport.NewServer(
			aEp.UpdateDetails,
			makeDocumentDecoder(""),
			encodeJSONResponse,
			options...,
		))

		// UpdatePassword
		api.Methods(http.MethodPut).Path("/auth/updatepassword").Handler(httptransport.NewServer(
			aEp.UpdatePassword,
			makeDocumentDecoder(""),
			encodeSession,
			options...,
		))

		// ForgotPassword
		api.Methods(http.MethodPost).Path("/auth/password").Handler(httptransport.NewServer(
			aEp.ForgotPassword,
			makeDocumentDecoder(""),
			encodeJSONResponse,
			options...,
		))

		// ResetPassword
		api.Methods(http.MethodPut).Path("/auth/password/{token}").Handler(httptransport.NewServer(
			aEp.ResetPassword,
			makeDocumentDecoder("token"),
			encodeSession,
			options...,
		))
	}

	// -- Users ----------------------------------------
	{
		uEp := MakeUserEndpoints(s.Users, opts.Policy, opts.Metrics)

		// List
		api.Methods(http.MethodGet).Path("/auth/users").Handler(httptransport.NewServer(
			uEp.List,
			makeTunedDecoder(t, nil),
			encodeJSONResponse,
			options...,
		))

		// Create
		api.Methods(http.MethodPost).Path("/auth/users").Handler(httptransport.NewServer(
			uEp.Create,
			makeDocumentDecoder(""),
			encodeCreatedResponse,
			options...,
		))

		// Get
		api.Methods(http.MethodGet).Path("/auth/users/{id}").Handler(httptransport.NewServer(
			uEp.Get,
			decodeIDFromPath,
			encodeJSONResponse,
			options...,
		))

		// Update
		api.Methods(http.MethodPut).Path("/auth/users/{id}").Handler(httptransport.NewServer(
			uEp.Update,
			makeDocumentDecoder("id"),
			encodeJSONResponse,
			options...,
		))

		// Delete
		api.Methods(http.MethodDelete).Path("/auth/users/{id}").Handler(httptransport.NewServer(
			uEp.Delete,
			decodeIDFromPath,
			encodeJSONResponse,
			options...,
		))
	}

	// Simple alive answer for checking if HTTP can be reached
	r.Methods(http.MethodGet).Path("/alive").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		data := map[string]bool{"ok": true}
		json.NewEncoder(w).Encode(data)
	})

	r.Methods(http.MethodGet).Path("/metrics").Handler(opts.Metrics.Handler())

	if opts.Uploads != nil {
		r.Methods(http.MethodGet).PathPrefix("/uploads/").Handler(
			http.StripPrefix("/uploads/", opts.Uploads.Handler()),
		)
	}

	// Plain file service for everything else
	if opts.StaticDir != "" {
		r.Methods(http.MethodGet).PathPrefix("/").Handler(http.FileServer(http.Dir(opts.StaticDir)))
	}

	return securityHeaders(limitRequests(opts.Limiter, logger, r))
}

// securityHeaders adds the headers preventing caching and restricting the sources of content to every response
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
		h.Set("Pragma", "no-cache")
		h.Set("Expires", "0")
		h.Set("Content-Security-Policy", contentSecurityPolicy)
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// limitRequests rejects requests of clients that exceeded their request limit
func limitRequests(l *ratelimit.Limiter, logger *logrus.Entry, next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := l.ClientIP(r)
		if !l.Allow(ip) {
			logger.WithField(log.FldIP, ip).Warn("Request limit exceeded")
			encodeError(r.Context(), ErrRateLimited, w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// decodeNilRequest just does nothing with the request. It is used for endpoints that don't need anything to be passed
func decodeNilRequest(_ context.Context, r *http.Request) (request interface{}, err error) {
	return nil, nil
}

// Decodes an ID from the "id" path variable provided by GoRilla
func decodeIDFromPath(_ context.Context, r *http.Request) (interface{}, error) {
	id, ok := mux.Vars(r)["id"]
	if !ok || id == "" {
		return nil, MakeError(http.StatusBadRequest, ErrCodeRequiredFieldMissing, "No ID provided")
	}
	return id, nil
}

// readBody reads the request body up to the maximum body size
func readBody(r *http.Request) ([]byte, error) {
	doc, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return nil, MakeErrorWithData(http.StatusBadRequest, ErrCodeIllegalJSON, "Failed to read request body", err)
	}
	if len(doc) > maxBodySize {
		return nil, MakeError(http.StatusRequestEntityTooLarge, ErrCodeIllegalJSON, "Request body too large")
	}
	return doc, nil
}

// makeDocumentDecoder creates a decoder reading the JSON body. The entity ID is taken from the given path variable.
func makeDocumentDecoder(idVar string) httptransport.DecodeRequestFunc {
	return func(_ context.Context, r *http.Request) (interface{}, error) {
		doc, err := readBody(r)
		if err != nil {
			return nil, err
		}
		req := documentRequest{Doc: doc}
		if idVar != "" {
			req.ID = mux.Vars(r)[idVar]
		}
		return req, nil
	}
}

// makePhotoDecoder creates a decoder reading the file uploaded in the "file" field of a multipart form
func makePhotoDecoder(maxSize int64) httptransport.DecodeRequestFunc {
	return func(_ context.Context, r *http.Request) (interface{}, error) {
		req := photoRequest{ID: mux.Vars(r)["id"]}
		f, header, err := r.FormFile("file")
		if err != nil {
			if err == http.ErrMissingFile || err == http.ErrNotMultipart {
				return req, nil
			}
			return nil, MakeErrorWithData(http.StatusBadRequest, ErrCodeUploadFailed, "Failed to read upload", err)
		}
		defer f.Close()
		if r.MultipartForm != nil {
			defer r.MultipartForm.RemoveAll()
		}
		// One byte more than allowed is enough to detect oversized files
		data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
		if err != nil {
			return nil, MakeErrorWithData(http.StatusBadRequest, ErrCodeUploadFailed, "Failed to read upload", err)
		}
		req.Upload = &Upload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		}
		return req, nil
	}
}

// makeTunedDecoder creates a decoder translating the query string into a query descriptor. The path filter maps path
// variables to the fields they filter.
func makeTunedDecoder(t *query.Translator, pathFilter map[string]string) httptransport.DecodeRequestFunc {
	return func(ctx context.Context, r *http.Request) (interface{}, error) {
		vars := mux.Vars(r)
		filter := make(map[string]string, len(pathFilter))
		for v, field := range pathFilter {
			filter[field] = vars[v]
		}
		return translate(ctx, t, r, filter)
	}
}

// makeRadiusDecoder creates a decoder for radius searches taking postal code and distance from the path. The distance
// is required here, so an illegal one is rejected instead of disabling the radius filter.
func makeRadiusDecoder(t *query.Translator) httptransport.DecodeRequestFunc {
	return func(ctx context.Context, r *http.Request) (interface{}, error) {
		vars := mux.Vars(r)
		if _, err := query.ParseDistance(vars["distance"]); err != nil {
			return nil, MakeError(
				http.StatusBadRequest,
				ErrCodeIllegalValue,
				fmt.Sprintf("The distance '%s' is not a non-negative number", vars["distance"]),
			)
		}
		opts := t.Options()
		return translate(ctx, t, r, map[string]string{
			opts.ZipParam:      vars["zipcode"],
			opts.DistanceParam: vars["distance"],
		})
	}
}

func translate(ctx context.Context, t *query.Translator, r *http.Request, filter map[string]string) (interface{}, error) {
	d, err := t.Translate(ctx, r.URL.Query(), filter)
	if err != nil {
		if lerr, ok := err.(*query.LookupError); ok {
			ctxhelper.Logger(ctx).WithError(lerr).WithField(log.FldZipcode, lerr.Code).Info("Location lookup failed")
			return nil, errLookup(lerr)
		}
		return nil, err
	}
	return d, nil
}

// Encodes a typical JSON response
func encodeJSONResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	return json.NewEncoder(w).Encode(response)
}

// Encodes the response of a call that created a new entity
func encodeCreatedResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusCreated)
	return json.NewEncoder(w).Encode(response)
}

// makeSessionEncoder creates an encoder setting the token cookie for new sessions and removing it on logout
func makeSessionEncoder(maxAge time.Duration, secure bool) httptransport.EncodeResponseFunc {
	return func(ctx context.Context, w http.ResponseWriter, response interface{}) error {
		cookie := &http.Cookie{
			Name:     tokenCookie,
			Path:     "/",
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		}
		switch resp := response.(type) {
		case tokenResponse:
			cookie.Value = resp.Token
			cookie.MaxAge = int(maxAge.Seconds())
			cookie.Expires = time.Now().Add(maxAge)
			http.SetCookie(w, cookie)
		case logoutResponse:
			cookie.Value = "none"
			cookie.MaxAge = -1
			http.SetCookie(w, cookie)
		}
		return encodeJSONResponse(ctx, w, response)
	}
}

// Builds an error response based on the incoming error
func encodeError(_ context.Context, err error, w http.ResponseWriter) {
	if err == nil {
		panic("encodeError with nil error")
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if st, ok := err.(httpStatuser); ok {
		w.WriteHeader(st.Status())
	} else {
		w.WriteHeader(http.StatusInternalServerError)
	}
	ret := errorResponse{
		basicResponse: basicResponse{false, nil},
		Message:       err.Error(),
		Error:         ErrCodeUnknown,
	}
	if cd, ok := err.(errorCoder); ok {
		ret.Error = cd.ErrorCode()
	}
	if db, ok := err.(dataBearer); ok {
		if data := db.Data(); data != nil {
			if err, ok := data.(error); ok {
				ret.Details = err.Error()
			} else {
				ret.Details = data
			}
		}
	}
	json.NewEncoder(w).Encode(&ret)
}

// bearerToken returns the session token sent by the client. The cookie takes precedence over the Authorization
// header.
func bearerToken(r *http.Request) string {
	if c, err := r.Cookie(tokenCookie); err == nil && c.Value != "" && c.Value != "none" {
		return c.Value
	}
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// makeAuthDecoder returns a function that is used in every HTTP call to decode the session used, if a session
// token is sent by the client
func makeAuthDecoder(s AuthService) httptransport.RequestFunc {
	return func(ctx context.Context, r *http.Request) context.Context {
		token := bearerToken(r)
		if token == "" {
			return ctx
		}
		logger := ctxhelper.Logger(ctx)
		sess, user, err := s.Authenticate(ctx, token)
		if err != nil {
			logger.WithError(err).Error("Failed to retrieve session information")
			return ctx
		}
		if sess == nil || user == nil {
			// Nobody logged in
			return ctx
		}
		return ctxhelper.WithAuth(ctx, *sess, *user)
	}
}

func makeContextInjector(logger *logrus.Entry) httptransport.RequestFunc {
	return func(ctx context.Context, r *http.Request) context.Context {
		return ctxhelper.WithLogger(ctx, logger)
	}
}
