// Package validation はgo-playground/validatorを使用した入力検証を提供する。
// 検証エラーは model.APIError（VALIDATION）に変換され、ストレージへのアクセス前に返される。
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/conduit/internal/model"
)

// Validator はgo-playground/validatorをラップし、ドメインエラーに変換する。
type Validator struct {
	v *validator.Validate
}

// New は新しいValidatorを生成する。
// エラーのフィールド名にはJSONタグ名を使用する。
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	// notblank は空白のみの文字列を拒否する
	if err := v.RegisterValidation("notblank", notBlank); err != nil {
		panic(fmt.Sprintf("validation: notblank の登録に失敗しました: %v", err))
	}

	return &Validator{v: v}
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// Validate は構造体を検証し、違反があれば *model.APIError を返す。
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fields := make(map[string]string, len(validationErrs))
	for _, e := range validationErrs {
		fields[fieldPath(e)] = friendlyMessage(e)
	}
	return model.NewValidationError(fields)
}

// fieldPath はトップレベルの構造体名を除いたフィールドパスを返す（例: "article.title"）。
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return e.Field()
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "notblank":
		return "入力してください"
	case "email":
		return "メールアドレスの形式で入力してください"
	case "max":
		return fmt.Sprintf("%s文字以内で入力してください", e.Param())
	case "min":
		return fmt.Sprintf("%s文字以上で入力してください", e.Param())
	case "gte":
		return fmt.Sprintf("%s以上を指定してください", e.Param())
	case "lte":
		return fmt.Sprintf("%s以下を指定してください", e.Param())
	default:
		return "不正な値です"
	}
}
