// Package credentials stores the session cookies that member-only diary
// pages require.
//
// A Manager tries its backends in order: the system keyring, an encrypted
// file (AES-GCM with a PBKDF2-derived key), and finally read-only
// DIARYKEEPER_COOKIES_<SITE> environment variables holding a Cookie header.
package credentials
