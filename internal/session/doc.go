// Package session drives sign-in and account flows on top of the API client:
// login and automatic re-login from remembered credentials, logout,
// registration and confirmation, password reset, invite codes and the
// access gate that decides where a signed-in user lands.
package session
