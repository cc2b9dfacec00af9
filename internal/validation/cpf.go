// Package validation содержит функции валидации входных данных.
package validation

import "unicode"

// IsValidCPF проверяет корректность CPF: 11 цифр и оба контрольных разряда.
// Номера из одинаковых цифр проходят арифметическую проверку, но считаются некорректными.
func IsValidCPF(cpf string) bool {
	if len(cpf) != 11 {
		return false
	}

	digits := make([]int, 11)
	allSame := true
	for i, ch := range cpf {
		if !unicode.IsDigit(ch) {
			return false
		}
		digits[i] = int(ch - '0')
		if digits[i] != digits[0] {
			allSame = false
		}
	}

	if allSame {
		return false
	}

	if digits[9] != checkDigit(digits[:9], 10) {
		return false
	}

	return digits[10] == checkDigit(digits[:10], 11)
}

func checkDigit(digits []int, startWeight int) int {
	sum := 0
	for i, d := range digits {
		sum += d * (startWeight - i)
	}

	r := sum % 11
	if r < 2 {
		return 0
	}
	return 11 - r
}
