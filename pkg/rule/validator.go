// Package rule 基于 go-playground/validator 的校验，结构体标签为 rule.
//
// 配置和 HTTP 请求共用同一个 validator 实例，gin 的 binding 也使用 rule 标签.
// 额外注册的规则：
//
//	pinname     非空，不以 / 开头，最多一个 /（Connect 的 user/content），不是保留名称
//	pinversion  版本目录名，不含路径分隔符
package rule

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	inst *validator.Validate
	once sync.Once
)

// reservedNames 不能作为 pin 名称.
var reservedNames = map[string]struct{}{"data.txt": {}, "_pins.yaml": {}}

// initValidator 复用 gin 的 validator 引擎；不可用时新建.
func initValidator() {
	if engine := binding.Validator.Engine(); engine != nil {
		if v, ok := engine.(*validator.Validate); ok {
			inst = v
		}
	}

	if inst == nil {
		inst = validator.New()
	}

	inst.SetTagName("rule")
	inst.RegisterTagNameFunc(fieldName)

	_ = inst.RegisterValidation("pinname", validPinName)
	_ = inst.RegisterValidation("pinversion", validPinVersion)
}

// fieldName 错误中使用 json/form/mapstructure 标签名，与外部看到的参数名一致.
func fieldName(f reflect.StructField) string {
	for _, key := range []string{"json", "form", "mapstructure"} {
		name, _, _ := strings.Cut(f.Tag.Get(key), ",")
		if name == "-" {
			return ""
		}

		if name != "" {
			return name
		}
	}

	return f.Name
}

func validPinName(fl validator.FieldLevel) bool {
	name := fl.Field().String()

	if name == "" || strings.HasPrefix(name, "/") || strings.Count(name, "/") > 1 {
		return false
	}

	for _, seg := range strings.Split(name, "/") {
		if !validSegment(seg) {
			return false
		}
	}

	_, reserved := reservedNames[name[strings.LastIndex(name, "/")+1:]]

	return !reserved
}

// validSegment 非空，不是 . 或 ..，不含反斜杠.
func validSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.Contains(s, `\`)
}

func validPinVersion(fl validator.FieldLevel) bool {
	v := fl.Field().String()

	return v == "" || len(v) <= 128 && validSegment(v) && !strings.Contains(v, "/")
}

// lazyInit 初始化全局 validator（幂等）.
func lazyInit() {
	once.Do(initValidator)
}

// Engine 返回全局 *validator.Validate，若未初始化则先初始化.
func Engine() *validator.Validate {
	lazyInit()

	return inst
}

// RegisterValidation 代理 RegisterValidation，确保已初始化.
func RegisterValidation(tag string, fn validator.Func, opts ...bool) error {
	lazyInit()

	return inst.RegisterValidation(tag, fn, opts...)
}

// ValidationErrors 格式化后的校验错误，键为字段名，值为未通过的规则.
type ValidationErrors map[string]string

// Errors 把校验错误展开为 字段 -> 规则；不是校验错误时返回 nil.
func Errors(err error) ValidationErrors {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make(ValidationErrors, len(verrs))

	for _, fe := range verrs {
		r := fe.Tag()
		if fe.Param() != "" {
			r += "=" + fe.Param()
		}

		out[fe.Field()] = r
	}

	return out
}

// ValidateStruct 对结构体执行完整校验，返回原始 error（可用 Errors 解析）.
func ValidateStruct(s any) error {
	lazyInit()

	return inst.Struct(s)
}

// ValidateVar 按规则对单个变量校验，例如: ValidateVar("cars", "required,pinname").
func ValidateVar(field any, tag string) error {
	lazyInit()

	return inst.Var(field, tag)
}

// RegisterAlias 包装 RegisterAlias，便于注册别名规则.
func RegisterAlias(alias, rules string) {
	lazyInit()

	inst.RegisterAlias(alias, rules)
}
