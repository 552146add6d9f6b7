// 包 report：数据纠错表单（字段校验、人机校验、投递）
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"antmaps-api/internal/logger"
	"antmaps-api/internal/metrics"
)

// HumanTestMessage：人机校验失败时返回给表单的原文
const HumanTestMessage = `Incorrect answer!  (Hint: please type "ant" into this box.)`

// Form：纠错表单；字段名与前端表单一致
type Form struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Message   string `json:"message" validate:"required"`
	HumanTest string `json:"humantest" validate:"required,humantest"`
}

var accepted = map[string]struct{}{"ant": {}, "ants": {}, "an ant": {}, "a ant": {}}

// IsHuman：去掉首尾空白并忽略大小写后与四种写法比对
func IsHuman(s string) bool {
	_, ok := accepted[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	_ = v.RegisterValidation("humantest", func(fl validator.FieldLevel) bool {
		return IsHuman(fl.Field().String())
	})
	return v
}

// Validate：返回按字段名索引的错误信息；全部通过时返回 nil
func Validate(f Form) map[string]string {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Message = strings.TrimSpace(f.Message)
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"form": err.Error()}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			out[fe.Field()] = "This field is required."
		case "email":
			out[fe.Field()] = "Enter a valid email address."
		case "humantest":
			out[fe.Field()] = HumanTestMessage
		default:
			out[fe.Field()] = fe.Error()
		}
	}
	return out
}

// Sender：投递一份已通过校验的表单
type Sender interface {
	Send(ctx context.Context, f Form) error
}

// LogSender：未配置投递地址时仅写日志
type LogSender struct{}

func (LogSender) Send(_ context.Context, f Form) error {
	logger.L().Info("error_report_received", "name", f.Name, "email", f.Email, "message", f.Message)
	return nil
}

// Shoutrrr：经 shoutrrr 服务地址（smtp://、slack:// 等）投递
type Shoutrrr struct {
	sender *router.ServiceRouter
}

func NewShoutrrr(url string, timeout time.Duration) (*Shoutrrr, error) {
	s, err := shoutrrr.CreateSender(url)
	if err != nil {
		return nil, fmt.Errorf("error report sender: %w", err)
	}
	if timeout > 0 {
		s.Timeout = timeout
	}
	s.SetLogger(log.New(io.Discard, "", 0))
	return &Shoutrrr{sender: s}, nil
}

func (s *Shoutrrr) Send(_ context.Context, f Form) error {
	p := stypes.Params{}
	p.SetTitle("Antmaps data error report from " + f.Name)
	body := fmt.Sprintf("Name: %s\nEmail: %s\n\n%s\n", f.Name, f.Email, f.Message)
	for _, err := range s.sender.Send(body, &p) {
		if err != nil {
			return err
		}
	}
	return nil
}

// Outcome：一次提交的处理结果
type Outcome struct {
	Errors map[string]string
	Sent   bool
	Err    error
}

// Service：校验后投递；投递失败是否对外暴露由调用方依据 debug 配置决定
type Service struct {
	sender Sender
}

func NewService(s Sender) *Service {
	if s == nil {
		s = LogSender{}
	}
	return &Service{sender: s}
}

func (s *Service) Submit(ctx context.Context, f Form) Outcome {
	if errs := Validate(f); errs != nil {
		metrics.ErrorReportsTotal.WithLabelValues("invalid").Inc()
		return Outcome{Errors: errs}
	}
	if err := s.sender.Send(ctx, f); err != nil {
		metrics.ErrorReportsTotal.WithLabelValues("failed").Inc()
		logger.L().Error("error_report_send_failed", "err", err)
		return Outcome{Err: err}
	}
	metrics.ErrorReportsTotal.WithLabelValues("sent").Inc()
	return Outcome{Sent: true}
}
