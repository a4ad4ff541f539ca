package handlers

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const couponCodeTag = "coupon_code"

var (
	couponCodeRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{3,32}$`)
	registerOnce    sync.Once
)

func couponCodeValidation(fl validator.FieldLevel) bool {
	return couponCodeRegex.MatchString(strings.TrimSpace(fl.Field().String()))
}

// RegisterValidators branche les règles maison sur le moteur de binding de gin
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		// noms JSON / form dans les erreurs plutôt que les noms Go
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})
		_ = v.RegisterValidation(couponCodeTag, couponCodeValidation)
	})
}

func fieldMessages(errs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		out[fe.Field()] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "ce champ est requis"
	case couponCodeTag:
		return "3 à 32 caractères : lettres, chiffres, - ou _"
	case "oneof":
		return fmt.Sprintf("doit valoir l'une des valeurs : %s", fe.Param())
	case "gte":
		return fmt.Sprintf("doit être supérieur ou égal à %s", fe.Param())
	case "lte":
		return fmt.Sprintf("doit être inférieur ou égal à %s", fe.Param())
	case "gt":
		return fmt.Sprintf("doit être supérieur à %s", fe.Param())
	case "min":
		return fmt.Sprintf("longueur minimale %s", fe.Param())
	case "max":
		return fmt.Sprintf("longueur maximale %s", fe.Param())
	default:
		return "valeur invalide"
	}
}
