// Package account is the account store the credential core runs against:
// registered nicknames, their stored credentials, and the [Service] that
// ties password checks to authcookies.
//
// Names compare case-insensitively under the rfc1459 case mapping, so
// "Nick[away]" and "nick{AWAY}" are the same account.
package account
