// Package main provides the apitoken command for managing the static API
// token.
//
// # Commands
//
//	apitoken generate [--bytes N]   print a random hex token
//	apitoken hash [--cost N]        print the bcrypt hash of a token
//	apitoken verify <hash>          check a token against a hash
//
// hash and verify prompt without echo when stdin is a terminal. Otherwise
// they read the token from the first line of stdin:
//
//	apitoken generate | tee token.txt | apitoken hash
//
// The server accepts either STATIC_API_TOKEN (the plain token) or
// STATIC_API_TOKEN_HASH (the bcrypt hash) in its environment or .env file.
package main
