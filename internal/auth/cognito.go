// Package auth registers and logs in users against a Cognito user pool and
// verifies the access tokens it issues.
package auth

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go/service/cognitoidentityprovider/cognitoidentityprovideriface"
	"github.com/rs/zerolog"

	"example.com/mediascribe/internal/apperr"
	"example.com/mediascribe/internal/config"
)

const invalidCredentials = "Invalid Credentials"

type Registration struct {
	Username string
	Password string
	Email    string
}

// User is what a successful registration echoes back. The password is never
// returned.
type User struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Subject   string `json:"sub"`
	Confirmed bool   `json:"confirmed"`
}

type Cognito struct {
	api         cognitoidentityprovideriface.CognitoIdentityProviderAPI
	userPoolID  string
	clientID    string
	autoConfirm bool
	log         zerolog.Logger
}

func NewCognito(sess *session.Session, cfg config.CognitoConfig, log zerolog.Logger) *Cognito {
	return NewCognitoWithClient(cognitoidentityprovider.New(sess), cfg, log)
}

func NewCognitoWithClient(api cognitoidentityprovideriface.CognitoIdentityProviderAPI, cfg config.CognitoConfig, log zerolog.Logger) *Cognito {
	return &Cognito{
		api:         api,
		userPoolID:  cfg.UserPoolID,
		clientID:    cfg.ClientID,
		autoConfirm: cfg.AutoConfirm,
		log:         log,
	}
}

func (c *Cognito) Register(ctx context.Context, reg Registration) (User, error) {
	out, err := c.api.SignUpWithContext(ctx, &cognitoidentityprovider.SignUpInput{
		ClientId: aws.String(c.clientID),
		Username: aws.String(reg.Username),
		Password: aws.String(reg.Password),
		UserAttributes: []*cognitoidentityprovider.AttributeType{
			{Name: aws.String("email"), Value: aws.String(reg.Email)},
		},
	})
	if err != nil {
		return User{}, signUpError(err)
	}

	user := User{
		Username:  reg.Username,
		Email:     reg.Email,
		Subject:   aws.StringValue(out.UserSub),
		Confirmed: aws.BoolValue(out.UserConfirmed),
	}
	if c.autoConfirm && !user.Confirmed {
		if _, err := c.api.AdminConfirmSignUpWithContext(ctx, &cognitoidentityprovider.AdminConfirmSignUpInput{
			UserPoolId: aws.String(c.userPoolID),
			Username:   aws.String(reg.Username),
		}); err != nil {
			return User{}, apperr.Provider(err)
		}
		user.Confirmed = true
	}
	c.log.Info().Str("username", reg.Username).Bool("confirmed", user.Confirmed).Msg("registered user")
	return user, nil
}

// Login exchanges a username and password for an access token.
func (c *Cognito) Login(ctx context.Context, username, password string) (string, error) {
	out, err := c.api.InitiateAuthWithContext(ctx, &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: aws.String(cognitoidentityprovider.AuthFlowTypeUserPasswordAuth),
		AuthParameters: map[string]*string{
			"USERNAME": aws.String(username),
			"PASSWORD": aws.String(password),
		},
		ClientId: aws.String(c.clientID),
	})
	if err != nil {
		return "", loginError(err)
	}
	if out.AuthenticationResult == nil || aws.StringValue(out.AuthenticationResult.AccessToken) == "" {
		// A pending challenge (new password, MFA) cannot be completed here.
		c.log.Info().Str("username", username).Str("challenge", aws.StringValue(out.ChallengeName)).Msg("login needs a challenge")
		return "", apperr.Auth(invalidCredentials)
	}
	return aws.StringValue(out.AuthenticationResult.AccessToken), nil
}

func signUpError(err error) error {
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return apperr.Provider(err)
	}
	switch aerr.Code() {
	case cognitoidentityprovider.ErrCodeUsernameExistsException:
		return apperr.Validation(map[string][]string{"username": {"A user with that username already exists."}})
	case cognitoidentityprovider.ErrCodeInvalidPasswordException:
		return apperr.Validation(map[string][]string{"password": {aerr.Message()}})
	case cognitoidentityprovider.ErrCodeInvalidParameterException:
		return apperr.InvalidInput(aerr.Message())
	}
	return apperr.Provider(err)
}

func loginError(err error) error {
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return apperr.Provider(err)
	}
	switch aerr.Code() {
	case cognitoidentityprovider.ErrCodeNotAuthorizedException,
		cognitoidentityprovider.ErrCodeUserNotFoundException,
		cognitoidentityprovider.ErrCodeUserNotConfirmedException,
		cognitoidentityprovider.ErrCodePasswordResetRequiredException:
		return apperr.Auth(invalidCredentials).WithCause(err)
	}
	return apperr.Provider(err)
}
