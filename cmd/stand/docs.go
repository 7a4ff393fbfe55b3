package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           stand API
// @version         1.0
// @description     HTTP API for compiling Stan programs and running inference through the CmdStan engine.
//
// @contact.name   stand maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
