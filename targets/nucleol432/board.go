//go:build stm32l4

package main

import (
	"device/stm32"
	"errors"

	"quadpwm/core"
)

// TIM1 alternate function on PA8 and PB0
const afTIM1 = 1

var errNoPort = errors.New("pin has no GPIO port on this board")

// board brings up TIM1 and its output pins on the STM32L432
type board struct{}

func (board) ResetAndEnable() error {
	stm32.RCC.APB2ENR.SetBits(stm32.RCC_APB2ENR_TIM1EN)
	stm32.RCC.APB2RSTR.SetBits(stm32.RCC_APB2RSTR_TIM1RST)
	stm32.RCC.APB2RSTR.ClearBits(stm32.RCC_APB2RSTR_TIM1RST)
	return nil
}

func (board) ConfigurePin(pin core.Pin, drive core.DriveMode) error {
	var port *stm32.GPIO_Type
	switch pin / 16 {
	case 0:
		stm32.RCC.AHB2ENR.SetBits(stm32.RCC_AHB2ENR_GPIOAEN)
		port = stm32.GPIOA
	case 1:
		stm32.RCC.AHB2ENR.SetBits(stm32.RCC_AHB2ENR_GPIOBEN)
		port = stm32.GPIOB
	default:
		return errNoPort
	}
	pos := uint8(pin % 16)

	speed := uint32(0x3) // very high
	if drive == core.DrivePushPullLow {
		speed = 0x0
	}
	port.OSPEEDR.ReplaceBits(speed, 0x3, pos*2)

	if drive == core.DriveOpenDrain {
		port.OTYPER.SetBits(1 << pos)
	} else {
		port.OTYPER.ClearBits(1 << pos)
	}
	port.PUPDR.ReplaceBits(0, 0x3, pos*2)

	if pos < 8 {
		port.AFRL.ReplaceBits(afTIM1, 0xF, pos*4)
	} else {
		port.AFRH.ReplaceBits(afTIM1, 0xF, (pos-8)*4)
	}
	// MODER last: the pin joins the timer only once drive and AF are set
	port.MODER.ReplaceBits(0x2, 0x3, pos*2)
	return nil
}
