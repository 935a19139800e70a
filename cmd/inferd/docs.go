package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           inferd API
// @version         1.0
// @description     HTTP API for on-device LLM session management and text generation.
//
// @contact.name   inferd maintainers
// @contact.url    https://github.com/RishiAhuja/android-llama-inference
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
