package resources

import "errors"

var (
	ErrConversion        = errors.New("resources: conversion failed")
	ErrMalformedConfig   = errors.New("resources: malformed configuration text")
	ErrSubmethodNotFound = errors.New("resources: submethod not found")
	ErrInvalidIdentifier = errors.New("resources: no valid identifier")
)
