package garden

// TokenValidatorFunc adapts a function into a TokenValidator.
type TokenValidatorFunc func(tokenString string) (AuthClaims, error)

// Validate satisfies the TokenValidator interface.
func (f TokenValidatorFunc) Validate(tokenString string) (AuthClaims, error) {
	if f == nil {
		return nil, ErrUnableToDecodeSession
	}
	return f(tokenString)
}

// MultiTokenValidator tries validators in order until one succeeds, which
// lets tokens signed with a retired key keep working while they expire.
// Malformed errors move on to the next validator; any other error, such as
// an expired token, stops the chain.
type MultiTokenValidator struct {
	validators []TokenValidator
}

// NewMultiTokenValidator filters nil validators and returns a composite validator.
func NewMultiTokenValidator(validators ...TokenValidator) *MultiTokenValidator {
	filtered := make([]TokenValidator, 0, len(validators))
	for _, v := range validators {
		if v != nil {
			filtered = append(filtered, v)
		}
	}
	return &MultiTokenValidator{validators: filtered}
}

// Validate satisfies the TokenValidator interface.
func (m *MultiTokenValidator) Validate(tokenString string) (AuthClaims, error) {
	var lastErr error
	for _, v := range m.validators {
		claims, err := v.Validate(tokenString)
		if err == nil {
			return claims, nil
		}
		if IsMalformedError(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrTokenMalformed
}

// NewRotatingValidator validates with current first, then with a token
// service per retired key.
func NewRotatingValidator(current TokenValidator, issuer string, audience []string, logger Logger, previousKeys ...string) TokenValidator {
	if len(previousKeys) == 0 {
		return current
	}
	validators := []TokenValidator{current}
	for _, key := range previousKeys {
		if key == "" {
			continue
		}
		validators = append(validators, NewTokenService([]byte(key), issuer, audience, logger))
	}
	return NewMultiTokenValidator(validators...)
}
