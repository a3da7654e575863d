package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           vizcore debug API
// @version         1.0
// @description     Read-only diagnostic API for the adaptive rendering core.
//
// @contact.name   vizcore maintainers
// @contact.url    https://github.com/your-org/vizcore
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
