// Rejection message localization.
//
// The marketplace serves a mixed English/Portuguese audience, so the
// user-facing rejection messages honor the Accept-Language header. Only the
// messages shown to end users are localized; error codes stay stable and
// machine-readable.
package handlers

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
)

var supportedLanguages = []language.Tag{
	language.English, // default
	language.BrazilianPortuguese,
}

var messageMatcher = language.NewMatcher(supportedLanguages)

var rejectionMessages = map[language.Tag]map[string]string{
	language.English: {
		ErrCodePriceMismatch:       "amount does not match the current boost price",
		ErrCodeFeeProhibited:       "peer transfers must carry no fee",
		ErrCodeOracleUnavailable:   "pricing is temporarily unavailable, try again shortly",
		ErrCodeInsufficientBalance: "insufficient balance",
		ErrCodeListingOccupied:     "listing already has an occupying boost",
		ErrCodeInvalidState:        "boost cannot change state from its current one",
	},
	language.BrazilianPortuguese: {
		ErrCodePriceMismatch:       "o valor nao corresponde ao preco atual do impulso",
		ErrCodeFeeProhibited:       "transferencias entre usuarios nao podem ter taxa",
		ErrCodeOracleUnavailable:   "precos temporariamente indisponiveis, tente novamente em instantes",
		ErrCodeInsufficientBalance: "saldo insuficiente",
		ErrCodeListingOccupied:     "o anuncio ja possui um impulso ativo",
		ErrCodeInvalidState:        "o impulso nao pode mudar de estado a partir do estado atual",
	},
}

// localizedMessage picks the message for code in the caller's language,
// falling back to English and finally to the supplied default.
func localizedMessage(c *gin.Context, code, fallback string) string {
	tags, _, err := language.ParseAcceptLanguage(c.GetHeader("Accept-Language"))
	tag := language.English
	if err == nil && len(tags) > 0 {
		// Match reports the index into supportedLanguages; the returned tag
		// itself may carry client-specific extensions unusable as a map key.
		_, idx, _ := messageMatcher.Match(tags...)
		tag = supportedLanguages[idx]
	}
	if msgs, ok := rejectionMessages[tag]; ok {
		if m, ok := msgs[code]; ok {
			return m
		}
	}
	if m, ok := rejectionMessages[language.English][code]; ok {
		return m
	}
	return fallback
}
