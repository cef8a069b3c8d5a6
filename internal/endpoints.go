package internal

import (
	"fmt"

	"github.com/derWhity/devcamper/internal/policy"
	"github.com/derWhity/devcamper/internal/query"
	"github.com/go-kit/kit/endpoint"
	"golang.org/x/net/context"
)

// BootcampEndpoints is a collection of endpoints to the bootcamp service
type BootcampEndpoints struct {
	List        endpoint.Endpoint
	Get         endpoint.Endpoint
	GetByOwner  endpoint.Endpoint
	Create      endpoint.Endpoint
	Update      endpoint.Endpoint
	Delete      endpoint.Endpoint
	UploadPhoto endpoint.Endpoint
}

// CourseEndpoints is a collection of endpoints to the course service
type CourseEndpoints struct {
	List   endpoint.Endpoint
	Get    endpoint.Endpoint
	Create endpoint.Endpoint
	Update endpoint.Endpoint
	Delete endpoint.Endpoint
}

// ReviewEndpoints is a collection of endpoints to the review service
type ReviewEndpoints struct {
	List   endpoint.Endpoint
	Get    endpoint.Endpoint
	Create endpoint.Endpoint
	Update endpoint.Endpoint
	Delete endpoint.Endpoint
}

// UserEndpoints is a collection of endpoints for the administration of users
type UserEndpoints struct {
	List   endpoint.Endpoint
	Get    endpoint.Endpoint
	Create endpoint.Endpoint
	Update endpoint.Endpoint
	Delete endpoint.Endpoint
}

// AuthEndpoints is a collection of endpoints for working with the own account and session
type AuthEndpoints struct {
	Register       endpoint.Endpoint
	Login          endpoint.Endpoint
	Logout         endpoint.Endpoint
	Current        endpoint.Endpoint
	UpdateDetails  endpoint.Endpoint
	UpdatePassword endpoint.Endpoint
	ForgotPassword endpoint.Endpoint
	ResetPassword  endpoint.Endpoint
}

// The base for all responses which always contains an "ok" property to show if the call was successful and a
// data element containing the result of the request
type basicResponse struct {
	OK   bool        `json:"ok"`
	Data interface{} `json:"data,omitempty"`
}

// A response creating a session - the token is set as cookie, too
type tokenResponse struct {
	basicResponse
	Token string `json:"token"`
}

// A request carrying a JSON document - ID is the ID of the entity addressed by the path
type documentRequest struct {
	ID  string
	Doc []byte
}

// A request for uploading a bootcamp photo
type photoRequest struct {
	ID     string
	Upload *Upload
}

// A response ending the current session - the token cookie is removed
type logoutResponse struct {
	basicResponse
}

// -- Helpers ----------------------------------------------------------------------------------------------------------

func errRequestType(request interface{}) error {
	return fmt.Errorf("unexpected request type %T", request)
}

// makeListEndpoint creates an endpoint running a tuned list request
func makeListEndpoint(list func(context.Context, *query.Descriptor) (*query.Result, error)) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		d, ok := request.(*query.Descriptor)
		if !ok {
			return nil, errRequestType(request)
		}
		res, err := list(ctx, d)
		if err != nil {
			return nil, err
		}
		return basicResponse{true, res}, nil
	}
}

// makeIDEndpoint creates an endpoint calling a service function that takes the ID of an entity
func makeIDEndpoint[T any](fn func(context.Context, string) (T, error)) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		id, ok := request.(string)
		if !ok {
			return nil, errRequestType(request)
		}
		res, err := fn(ctx, id)
		if err != nil {
			return nil, err
		}
		return basicResponse{true, res}, nil
	}
}

// makeDeleteEndpoint creates an endpoint calling a delete function of a service
func makeDeleteEndpoint(fn func(context.Context, string) error) endpoint.Endpoint {
	return makeIDEndpoint(func(ctx context.Context, id string) (struct{}, error) {
		return struct{}{}, fn(ctx, id)
	})
}

// makeDocumentEndpoint creates an endpoint calling a service function with the ID and the JSON document of the
// request
func makeDocumentEndpoint[T any](fn func(context.Context, string, []byte) (T, error)) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req, ok := request.(documentRequest)
		if !ok {
			return nil, errRequestType(request)
		}
		res, err := fn(ctx, req.ID, req.Doc)
		if err != nil {
			return nil, err
		}
		return basicResponse{true, res}, nil
	}
}

// makeSessionEndpoint creates an endpoint for service functions that start a new session
func makeSessionEndpoint(fn func(context.Context, string, []byte) (*SessionInfo, error)) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req, ok := request.(documentRequest)
		if !ok {
			return nil, errRequestType(request)
		}
		info, err := fn(ctx, req.ID, req.Doc)
		if err != nil {
			return nil, err
		}
		return tokenResponse{basicResponse{true, info}, info.Token}, nil
	}
}

// withoutID adapts a service function that takes no entity ID
func withoutID[T any](fn func(context.Context, []byte) (T, error)) func(context.Context, string, []byte) (T, error) {
	return func(ctx context.Context, _ string, doc []byte) (T, error) {
		return fn(ctx, doc)
	}
}

// -- Bootcamps --------------------------------------------------------------------------------------------------------

// MakeBootcampEndpoints creates the endpoints needed to use the bootcamp service
func MakeBootcampEndpoints(s BootcampService, p *policy.Enforcer, m *Metrics) BootcampEndpoints {
	return BootcampEndpoints{
		List:        m.Instrument("bootcamps.list")(makeListEndpoint(s.List)),
		Get:         makeIDEndpoint(s.Get),
		GetByOwner:  EnsureUserLoggedIn(makeIDEndpoint(s.GetByOwner)),
		Create:      RequireRole(p, policy.ResBootcamp, policy.ActCreate)(makeDocumentEndpoint(withoutID(s.Create))),
		Update:      RequireRole(p, policy.ResBootcamp, policy.ActUpdate)(makeDocumentEndpoint(s.Update)),
		Delete:      RequireRole(p, policy.ResBootcamp, policy.ActDelete)(makeDeleteEndpoint(s.Delete)),
		UploadPhoto: RequireRole(p, policy.ResBootcamp, policy.ActUpdate)(MakeUploadPhotoEndpoint(s)),
	}
}

// MakeUploadPhotoEndpoint returns an endpoint calling the UploadPhoto method of the BootcampService
func MakeUploadPhotoEndpoint(s BootcampService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req, ok := request.(photoRequest)
		if !ok {
			return nil, errRequestType(request)
		}
		name, err := s.UploadPhoto(ctx, req.ID, req.Upload)
		if err != nil {
			return nil, err
		}
		return basicResponse{true, name}, nil
	}
}

// -- Courses ----------------------------------------------------------------------------------------------------------

// MakeCourseEndpoints creates the endpoints needed to use the course service
func MakeCourseEndpoints(s CourseService, p *policy.Enforcer, m *Metrics) CourseEndpoints {
	return CourseEndpoints{
		List:   m.Instrument("courses.list")(makeListEndpoint(s.List)),
		Get:    makeIDEndpoint(s.Get),
		Create: RequireRole(p, policy.ResCourse, policy.ActCreate)(makeDocumentEndpoint(s.Create)),
		Update: RequireRole(p, policy.ResCourse, policy.ActUpdate)(makeDocumentEndpoint(s.Update)),
		Delete: RequireRole(p, policy.ResCourse, policy.ActDelete)(makeDeleteEndpoint(s.Delete)),
	}
}

// -- Reviews ----------------------------------------------------------------------------------------------------------

// MakeReviewEndpoints creates the endpoints needed to use the review service
func MakeReviewEndpoints(s ReviewService, p *policy.Enforcer, m *Metrics) ReviewEndpoints {
	return ReviewEndpoints{
		List:   m.Instrument("reviews.list")(makeListEndpoint(s.List)),
		Get:    makeIDEndpoint(s.Get),
		Create: RequireRole(p, policy.ResReview, policy.ActCreate)(makeDocumentEndpoint(s.Create)),
		Update: RequireRole(p, policy.ResReview, policy.ActUpdate)(makeDocumentEndpoint(s.Update)),
		Delete: RequireRole(p, policy.ResReview, policy.ActDelete)(makeDeleteEndpoint(s.Delete)),
	}
}

// -- Users ------------------------------------------------------------------------------------------------------------

// MakeUserEndpoints creates the endpoints needed to administrate users
func MakeUserEndpoints(s UserService, p *policy.Enforcer, m *Metrics) UserEndpoints {
	admin := RequireRole(p, policy.ResUser, policy.ActManage)
	return UserEndpoints{
		List:   admin(m.Instrument("users.list")(makeListEndpoint(s.List))),
		Get:    admin(makeIDEndpoint(s.Get)),
		Create: admin(makeDocumentEndpoint(withoutID(s.Create))),
		Update: admin(makeDocumentEndpoint(s.Update)),
		Delete: admin(makeDeleteEndpoint(s.Delete)),
	}
}

// -- Auth -------------------------------------------------------------------------------------------------------------

// MakeAuthEndpoints creates the endpoints needed to use the auth service
func MakeAuthEndpoints(s AuthService, p *policy.Enforcer) AuthEndpoints {
	return AuthEndpoints{
		Register:       makeSessionEndpoint(withoutID(s.Register)),
		Login:          makeSessionEndpoint(withoutID(s.Login)),
		Logout:         EnsureUserLoggedIn(MakeLogoutEndpoint(s)),
		Current:        RequireRole(p, policy.ResAccount, policy.ActRead)(MakeCurrentEndpoint(s)),
		UpdateDetails:  EnsureUserLoggedIn(makeDocumentEndpoint(withoutID(s.UpdateDetails))),
		UpdatePassword: EnsureUserLoggedIn(makeSessionEndpoint(withoutID(s.UpdatePassword))),
		ForgotPassword: makeDocumentEndpoint(withoutID(func(ctx context.Context, doc []byte) (string, error) {
			if err := s.ForgotPassword(ctx, doc); err != nil {
				return "", err
			}
			return "Email sent", nil
		})),
		ResetPassword: makeSessionEndpoint(s.ResetPassword),
	}
}

// MakeLogoutEndpoint returns an endpoint calling the Logout method of the AuthService
func MakeLogoutEndpoint(s AuthService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		if err := s.Logout(ctx); err != nil {
			return nil, err
		}
		return logoutResponse{basicResponse{true, nil}}, nil
	}
}

// MakeCurrentEndpoint returns an endpoint calling the Current method of the AuthService
func MakeCurrentEndpoint(s AuthService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		u, err := s.Current(ctx)
		if err != nil {
			return nil, err
		}
		return basicResponse{true, u}, nil
	}
}
