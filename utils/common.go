package utils

// SMALL floors quantities that are divided by or bounded away from zero
const SMALL = 1.e-15
