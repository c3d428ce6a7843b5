package router

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"reflect"
	"strings"

	"certhub/pkg/errutil"
	"certhub/pkg/httputil"

	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	"github.com/rs/zerolog/log"
)

const appBasePath = "/api/v1"

type FileMeta struct {
	File       multipart.File
	FileHeader *multipart.FileHeader
}

// to decode url params
var decoder = schema.NewDecoder()

var (
	ErrUnsupportedContentType = errors.New("unsupported content type")
	ErrCannotSetFileMeta      = errors.New("cannot set file meta")
	ErrCannotDecodeUrlParams  = errors.New("cannot decode url params")
)

type Middleware interface {
	Handle(http.Handler) http.Handler
}

type Handler struct {
	Req        interface{}
	Res        interface{}
	HandleFunc func(ctx context.Context, req interface{}, res interface{}) error

	reqT  reflect.Type
	respT reflect.Type
}

type HttpRoute struct {
	Method      string
	Path        string
	Handler     Handler
	Middlewares []Middleware
}

type HttpRouter struct {
	*mux.Router
}

func (r *HttpRouter) RegisterHttpRoute(hr *HttpRoute) {
	// save req and res type
	hr.Handler.reqT = reflect.TypeOf(hr.Handler.Req).Elem()
	hr.Handler.respT = reflect.TypeOf(hr.Handler.Res).Elem()

	// calling chain
	chain := http.Handler(hr.Handler)

	if hr.Middlewares != nil {
		// wrap middlewares from right to left
		for i := len(hr.Middlewares) - 1; i >= 0; i-- {
			chain = hr.Middlewares[i].Handle(chain)
		}
	}

	r.Methods(hr.Method).Path(fmt.Sprintf("%s%s", appBasePath, hr.Path)).Handler(chain)
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req := reflect.New(h.reqT).Interface()
	res := reflect.New(h.respT).Interface()

	if err := decoder.Decode(req, r.URL.Query()); err != nil {
		log.Ctx(ctx).Error().Msgf("decode url query params error: %v", err)
		httputil.ReturnServerResponse(w, nil, errutil.BadRequestError(ErrCannotDecodeUrlParams))
		return
	}

	if r.Body != http.NoBody {
		switch {
		case hasContentType(r, "application/json"):
			if err := httputil.ReadJsonBody(r, req); err != nil {
				log.Ctx(ctx).Error().Msgf("read json body error: %v", err)
				httputil.ReturnServerResponse(w, nil, errutil.BadRequestError(err))
				return
			}
		case hasContentType(r, "multipart/form-data"):
			if err := setFileMeta(r, req); err != nil {
				log.Ctx(ctx).Error().Msgf("set file meta error: %v", err)
				httputil.ReturnServerResponse(w, nil, errutil.BadRequestError(err))
				return
			}
		default:
			httputil.ReturnServerResponse(w, nil, errutil.BadRequestError(ErrUnsupportedContentType))
			return
		}
	}

	err := h.HandleFunc(ctx, req, res)
	httputil.ReturnServerResponse(w, res, err)
}

// setFileMeta reads the multipart "file" part plus any form values into the
// request struct. Form values land on string fields by schema tag, the file
// lands on the embedded *FileMeta field.
func setFileMeta(r *http.Request, req interface{}) error {
	f, fh, err := r.FormFile("file")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		return err
	}

	if f != nil {
		fileMeta := &FileMeta{
			File:       f,
			FileHeader: fh,
		}

		reqVal := reflect.ValueOf(req).Elem()
		fileMetaField, ok := reqVal.Type().FieldByName("FileMeta")
		if !ok {
			return ErrCannotSetFileMeta
		}

		fv := reqVal.FieldByName(fileMetaField.Name)
		if !fv.CanSet() {
			return ErrCannotSetFileMeta
		}
		fv.Set(reflect.ValueOf(fileMeta))
	}

	if r.MultipartForm != nil && len(r.MultipartForm.Value) > 0 {
		if err := decoder.Decode(req, r.MultipartForm.Value); err != nil {
			return err
		}
	}

	return nil
}

func hasContentType(r *http.Request, mimetype string) bool {
	contentType := r.Header.Get("Content-type")
	if contentType == "" {
		return mimetype == "application/octet-stream"
	}

	for _, v := range strings.Split(contentType, ",") {
		t, _, err := mime.ParseMediaType(v)
		if err != nil {
			break
		}
		if t == mimetype {
			return true
		}
	}
	return false
}
