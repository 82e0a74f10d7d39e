// Package pages names the fixed navigation targets of the portal.
package pages

import "net/url"

const (
	LockerNoPage          = "/locker/nopage"
	LockerAuthComplete    = "/locker/auth/complete"
	LockerRegister        = "/locker/register"
	LockerRegisterConfirm = "/locker/register/confirm"
	LockerRegisterDone    = "/locker/register/complete"
	LockerFormComplete    = "/locker/form/complete"

	CircleNoPage           = "/circle/nopage"
	CircleTimeout          = "/circle/timeout"
	CircleRegisterComplete = "/circle/register/complete"
	CircleUpdateComplete   = "/circle/update/complete"

	Login = "/login"
	Admin = "/admin"
)

// With appends query parameters to a page path.
func With(page string, params url.Values) string {
	if len(params) == 0 {
		return page
	}
	return page + "?" + params.Encode()
}
